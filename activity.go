package auth

import (
	"context"
	"sync"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventUserProvisioned   ActivityEventType = "auth.user.provisioned"
	ActivityEventProvisionFailure  ActivityEventType = "auth.user.provision_failed"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventLogoutRemoteError ActivityEventType = "auth.logout.remote_failure"
	ActivityEventSessionRestored   ActivityEventType = "auth.session.restored"
	ActivityEventSessionRejected   ActivityEventType = "auth.session.rejected"
	ActivityEventRoleGranted       ActivityEventType = "role.grant.success"
	ActivityEventRoleGrantFailure  ActivityEventType = "role.grant.failure"
	ActivityEventRoleMirrored      ActivityEventType = "role.mirror.success"
	ActivityEventRoleMirrorFailure ActivityEventType = "role.mirror.failure"
	ActivityEventRoleSynced        ActivityEventType = "role.sync.synced"
	ActivityEventRolePartialGrant  ActivityEventType = "role.sync.partial_grant"
	ActivityEventRolePartialSync   ActivityEventType = "role.sync.partial_sync"
	ActivityEventRoleSyncFailed    ActivityEventType = "role.sync.failed"
)

// ActorRef identifies who or what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActorFor names u as the actor of an event, or the zero ActorRef for nil.
func ActorFor(u *User) ActorRef {
	if u == nil {
		return ActorRef{}
	}
	return ActorRef{ID: u.ID, Type: "user"}
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Wallet     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

// NormalizeActivitySink returns s, or a sink that drops everything when s is nil.
func NormalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// RecordActivity fills in defaults and hands the event to the sink. Sink
// failures are logged and never returned.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
		if event.Wallet != "" {
			event.Actor = ActorRef{ID: event.Wallet, Type: "wallet"}
		}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := NormalizeActivitySink(sink).Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink error", "event", event.EventType, "error", err)
	}
}

// ActivityRecorder is a sink that collects events in memory
type ActivityRecorder struct {
	mu     sync.Mutex
	events []ActivityEvent
}

// Record implements ActivitySink.
func (r *ActivityRecorder) Record(_ context.Context, event ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *ActivityRecorder) Events() []ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ActivityEvent, len(r.events))
	copy(out, r.events)
	return out
}
