package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/uptrace/bun"
)

// BunTokenStorage keeps the identity token in a single SQLite row.
type BunTokenStorage struct {
	db  bun.IDB
	key string
	now func() time.Time
}

// BunTokenOption customizes the bun token storage
type BunTokenOption func(*BunTokenStorage)

// WithSlotKey selects the row the token is kept in.
func WithSlotKey(key string) BunTokenOption {
	return func(s *BunTokenStorage) {
		if key != "" {
			s.key = key
		}
	}
}

// NewBunTokenStorage creates a token slot over db. The session_slots table
// must exist, see CreateSchema.
func NewBunTokenStorage(db bun.IDB, opts ...BunTokenOption) *BunTokenStorage {
	s := &BunTokenStorage{db: db, key: DefaultSlotKey, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *BunTokenStorage) Load(ctx context.Context) (string, error) {
	var model SessionSlotModel
	err := s.db.NewSelect().
		Model(&model).
		Where("slot_key = ?", s.key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load session slot")
	}
	return model.Token, nil
}

func (s *BunTokenStorage) Save(ctx context.Context, token string) error {
	model := &SessionSlotModel{
		Key:       s.key,
		Token:     token,
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (slot_key) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save session slot")
	}
	return nil
}

func (s *BunTokenStorage) Delete(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*SessionSlotModel)(nil)).
		Where("slot_key = ?", s.key).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session slot")
	}
	return nil
}

var _ auth.TokenStorage = (*BunTokenStorage)(nil)
