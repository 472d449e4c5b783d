package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultSlotKey is the row key of the single session slot
const DefaultSlotKey = "current"

// SessionSlotModel is the Bun model for the persisted identity token.
type SessionSlotModel struct {
	bun.BaseModel `bun:"table:session_slots"`

	Key       string    `bun:"slot_key,pk"`
	Token     string    `bun:"token,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// ActivityRecord is the Bun model for the activity log.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_log"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	ActorID    string         `bun:"actor_id"`
	ActorType  string         `bun:"actor_type"`
	UserID     string         `bun:"user_id"`
	Wallet     string         `bun:"wallet"`
	Metadata   map[string]any `bun:"metadata,type:json"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}
