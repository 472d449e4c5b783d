package rolesync

import (
	"context"
	"time"

	"github.com/google/uuid"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/chain"
)

// Granter sends one role grant for one property and returns its tx reference.
type Granter interface {
	GrantRole(ctx context.Context, propertyID uint64, role chain.RoleType, grantee string) (string, error)
}

// Mirror reads and records the backend role of a user.
type Mirror interface {
	ListUsers(ctx context.Context) ([]auth.User, error)
	UpdateUserRole(ctx context.Context, userID string, role auth.Role) (*auth.User, error)
}

// Observer receives grant and run outcomes, typically for metrics.
type Observer interface {
	ObserveGrant(role string, success bool)
	ObserveSync(status string, duration time.Duration)
}

// Status is the aggregate outcome of a sync run.
type Status string

const (
	// StatusSynced: every grant succeeded and the backend mirror succeeded
	StatusSynced Status = "synced"
	// StatusPartialGrant: some grants failed, the mirror succeeded
	StatusPartialGrant Status = "partial_grant"
	// StatusPartialSync: at least one grant succeeded but the mirror failed
	StatusPartialSync Status = "partial_sync"
	// StatusFailed: no grant succeeded, the mirror was not attempted
	StatusFailed Status = "failed"
)

// EventType is the aggregate activity event for a run that ended in s.
func (s Status) EventType() auth.ActivityEventType {
	switch s {
	case StatusSynced:
		return auth.ActivityEventRoleSynced
	case StatusPartialGrant:
		return auth.ActivityEventRolePartialGrant
	case StatusPartialSync:
		return auth.ActivityEventRolePartialSync
	default:
		return auth.ActivityEventRoleSyncFailed
	}
}

// PropertyRef selects a property for a grant.
type PropertyRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name,omitempty"`
}

// Request asks for role to be granted to Grantee on every property, then
// mirrored to the backend user UserID. Operator is who asked for it.
type Request struct {
	UserID     string         `json:"user_id"`
	Grantee    string         `json:"grantee"`
	Role       chain.RoleType `json:"role"`
	Properties []PropertyRef  `json:"properties"`
	Operator   auth.ActorRef  `json:"-"`
}

// PropertyResult is the outcome of one grant attempt.
type PropertyResult struct {
	PropertyID uint64 `json:"property_id"`
	Name       string `json:"name,omitempty"`
	Success    bool   `json:"success"`
	TxRef      string `json:"tx_ref,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Err        error  `json:"-"`
}

// Report is the outcome of a sync run. A PartialSync status is a warning
// that chain and backend disagree; it is never returned as an error.
type Report struct {
	RunID           uuid.UUID        `json:"run_id"`
	Status          Status           `json:"status"`
	Role            chain.RoleType   `json:"role"`
	BackendRole     auth.Role        `json:"backend_role"`
	Results         []PropertyResult `json:"results"`
	SuccessCount    int              `json:"success_count"`
	FailureCount    int              `json:"failure_count"`
	MirrorAttempted bool             `json:"mirror_attempted"`
	MirrorSkipped   bool             `json:"mirror_skipped,omitempty"`
	PreviousRole    auth.Role        `json:"previous_role,omitempty"`
	MirrorError     error            `json:"-"`
	MirrorReason    string           `json:"mirror_reason,omitempty"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
}

// Warning returns ErrPartialSync details when the mirror failed after a
// grant, nil otherwise.
func (r Report) Warning() error {
	if r.Status != StatusPartialSync {
		return nil
	}
	return auth.NewKindError(auth.ErrPartialSync, r.MirrorError, "", map[string]any{
		"success_count": r.SuccessCount,
		"backend_role":  string(r.BackendRole),
	})
}

// BackendRoleFor maps an on-chain role type to the backend role mirrored
// after a successful grant. The mirror never lowers a user already at or
// above it.
func BackendRoleFor(role chain.RoleType) auth.Role {
	switch role {
	case chain.RoleAdmin:
		return auth.RoleAdmin
	case chain.RoleManager, chain.RoleValidator:
		return auth.RoleManager
	default:
		return auth.RoleUser
	}
}
