package storage

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/uptrace/bun"
)

// NewActivityRepository returns the generic repository for the activity log.
func NewActivityRepository(db *bun.DB) repository.Repository[*ActivityRecord] {
	handlers := repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord {
			return &ActivityRecord{}
		},
		GetID: func(record *ActivityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivityRecord, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "event_type"
		},
	}
	return repository.NewRepository(db, handlers)
}

// ActivityLog persists activity events and implements auth.ActivitySink.
type ActivityLog struct {
	db   *bun.DB
	repo repository.Repository[*ActivityRecord]
}

// NewActivityLog creates the sink. The activity_log table must exist.
func NewActivityLog(db *bun.DB) *ActivityLog {
	return &ActivityLog{db: db, repo: NewActivityRepository(db)}
}

// Record implements auth.ActivitySink.
func (l *ActivityLog) Record(ctx context.Context, event auth.ActivityEvent) error {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	record := &ActivityRecord{
		ID:         uuid.New(),
		EventType:  string(event.EventType),
		ActorID:    event.Actor.ID,
		ActorType:  event.Actor.Type,
		UserID:     event.UserID,
		Wallet:     event.Wallet,
		Metadata:   event.Metadata,
		OccurredAt: occurred.UTC(),
	}
	if _, err := l.repo.Create(ctx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record activity").
			WithMetadata(map[string]any{"event_type": record.EventType})
	}
	return nil
}

// Recent returns the newest events first, at most limit of them.
func (l *ActivityLog) Recent(ctx context.Context, limit int) ([]auth.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []ActivityRecord
	err := l.db.NewSelect().
		Model(&records).
		Order("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list activity")
	}

	out := make([]auth.ActivityEvent, len(records))
	for i, r := range records {
		out[i] = auth.ActivityEvent{
			EventType:  auth.ActivityEventType(r.EventType),
			Actor:      auth.ActorRef{ID: r.ActorID, Type: r.ActorType},
			UserID:     r.UserID,
			Wallet:     r.Wallet,
			Metadata:   r.Metadata,
			OccurredAt: r.OccurredAt,
		}
	}
	return out, nil
}

var _ auth.ActivitySink = (*ActivityLog)(nil)
