package activitymap

import (
	"context"
	"sync"

	auth "github.com/tokenestate/go-estate-auth"
)

// DefaultFeedSize is how many notifications a Feed keeps when no size is given.
const DefaultFeedSize = 100

// Feed is an auth.ActivitySink that keeps the latest normalized events in a
// bounded buffer for display.
type Feed struct {
	mu    sync.RWMutex
	size  int
	items []Normalized
	opts  []Option
}

// NewFeed returns a feed holding at most size entries.
func NewFeed(size int, opts ...Option) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{size: size, opts: opts}
}

// Record implements auth.ActivitySink.
func (f *Feed) Record(_ context.Context, event auth.ActivityEvent) error {
	n := Normalize(event, f.opts...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, n)
	if over := len(f.items) - f.size; over > 0 {
		f.items = append([]Normalized(nil), f.items[over:]...)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (f *Feed) Recent(limit int) []Normalized {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > len(f.items) {
		limit = len(f.items)
	}
	out := make([]Normalized, 0, limit)
	for i := len(f.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.items[i])
	}
	return out
}

// Fanout returns a sink that records to every non-nil sink in order. The
// first error is returned after all sinks ran.
func Fanout(sinks ...auth.ActivitySink) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

var _ auth.ActivitySink = (*Feed)(nil)
