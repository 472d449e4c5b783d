package auth

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// SessionStore holds the single identity token of the running client. The
// in-memory copy is authoritative for reads; writes go to durable storage
// first. Concurrent Set calls race and the last one wins.
type SessionStore struct {
	mu      sync.RWMutex
	token   string
	storage TokenStorage
	logger  Logger
}

// SessionStoreOption customizes the session store.
type SessionStoreOption func(*SessionStore)

// WithSessionLogger overrides the logger.
func WithSessionLogger(logger Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSessionStore creates a store over storage. A nil storage keeps the
// token in memory only.
func NewSessionStore(storage TokenStorage, opts ...SessionStoreOption) *SessionStore {
	_, logger := ResolveLogger("auth.session", nil, nil)
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &SessionStore{storage: storage, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load reads the persisted token into memory. It is meant to run once at
// startup; calling it again re-reads storage.
func (s *SessionStore) Load(ctx context.Context) (string, error) {
	token, err := s.storage.Load(ctx)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session token")
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token != "" {
		s.logger.Debug("session token loaded")
	}
	return token, nil
}

// Get returns the current token and whether one is present.
func (s *SessionStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Has reports whether a token is present
func (s *SessionStore) Has() bool {
	_, ok := s.Get()
	return ok
}

// Set persists token and then makes it current, overwriting any previous one.
func (s *SessionStore) Set(ctx context.Context, token string) error {
	token = NormalizeIdentity(token)
	if token == "" {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(ctx, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session token")
	}
	s.token = token
	return nil
}

// Clear drops the token from durable storage and memory. Memory is always
// cleared, even when storage fails.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	if err := s.storage.Delete(ctx); err != nil {
		s.logger.Warn("failed to delete persisted session token", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session token")
	}
	return nil
}

// MemoryStorage is a TokenStorage that lives for the process only.
type MemoryStorage struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStorage returns an empty in-memory slot
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStorage) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStorage) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

var _ TokenStorage = (*MemoryStorage)(nil)
