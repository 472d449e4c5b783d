package activitymap

import (
	"fmt"
	"maps"
	"strings"
	"time"

	auth "github.com/tokenestate/go-estate-auth"
)

const (
	// MetadataKeyActorType stores the actor type derived from auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyWallet stores the wallet the event is about.
	MetadataKeyWallet = "wallet"
)

// Level is the notification severity shown to operators.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	defaultChannel    = "auth"
	defaultObjectType = "user"
	defaultActorID    = "system"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Level      Level          `json:"level"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) string
}

// Normalize converts an auth.ActivityEvent into a generic normalized shape.
// Role events land on the "role" channel with the property as object.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	channel, objectType := options.channel, options.objectType
	resolver := options.objectIDResolver
	if isRoleEvent(event.EventType) {
		channel = "role"
		if _, ok := event.Metadata["property_id"]; ok {
			objectType = "property"
			if resolver == nil {
				resolver = propertyID
			}
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: strings.TrimSpace(objectType),
		ObjectID:   resolveObjectID(event, resolver),
		Channel:    strings.TrimSpace(channel),
		Level:      LevelFor(event.EventType),
		Message:    MessageFor(event),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// LevelFor maps an event type to a notification level.
func LevelFor(t auth.ActivityEventType) Level {
	switch t {
	case auth.ActivityEventLoginSuccess, auth.ActivityEventUserProvisioned,
		auth.ActivityEventRoleGranted, auth.ActivityEventRoleMirrored,
		auth.ActivityEventRoleSynced:
		return LevelSuccess
	case auth.ActivityEventLogoutRemoteError, auth.ActivityEventSessionRejected,
		auth.ActivityEventRoleMirrorFailure, auth.ActivityEventRolePartialGrant,
		auth.ActivityEventRolePartialSync:
		return LevelWarning
	case auth.ActivityEventLoginFailure, auth.ActivityEventProvisionFailure,
		auth.ActivityEventRoleGrantFailure, auth.ActivityEventRoleSyncFailed:
		return LevelError
	default:
		return LevelInfo
	}
}

// MessageFor renders a one-line human message for event.
func MessageFor(event auth.ActivityEvent) string {
	who := firstNonEmpty(event.Wallet, event.UserID, "unknown")
	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		return fmt.Sprintf("%s signed in", who)
	case auth.ActivityEventLoginFailure:
		return fmt.Sprintf("sign in failed for %s", who)
	case auth.ActivityEventUserProvisioned:
		return fmt.Sprintf("account created for %s", who)
	case auth.ActivityEventProvisionFailure:
		return fmt.Sprintf("could not create an account for %s", who)
	case auth.ActivityEventLogout:
		return fmt.Sprintf("%s signed out", who)
	case auth.ActivityEventLogoutRemoteError:
		return fmt.Sprintf("%s signed out locally, backend logout failed", who)
	case auth.ActivityEventSessionRestored:
		return fmt.Sprintf("session restored for %s", who)
	case auth.ActivityEventSessionRejected:
		return fmt.Sprintf("stored session for %s was rejected", who)
	case auth.ActivityEventRoleGranted:
		return fmt.Sprintf("%v granted on property %v", event.Metadata["role"], event.Metadata["property_id"])
	case auth.ActivityEventRoleGrantFailure:
		return fmt.Sprintf("%v grant failed on property %v: %v", event.Metadata["role"], event.Metadata["property_id"], event.Metadata["reason"])
	case auth.ActivityEventRoleMirrored:
		if kept, _ := event.Metadata["kept"].(bool); kept {
			return fmt.Sprintf("backend role kept at %v", event.Metadata["previous_role"])
		}
		return fmt.Sprintf("backend role set to %v", event.Metadata["backend_role"])
	case auth.ActivityEventRoleMirrorFailure:
		return fmt.Sprintf("on-chain grants succeeded but backend role update failed: %v", event.Metadata["reason"])
	case auth.ActivityEventRoleSynced:
		return fmt.Sprintf("%v granted on %v properties", event.Metadata["role"], event.Metadata["success_count"])
	case auth.ActivityEventRolePartialGrant:
		return fmt.Sprintf("%v granted on %v properties, %v failed", event.Metadata["role"],
			event.Metadata["success_count"], event.Metadata["failure_count"])
	case auth.ActivityEventRolePartialSync:
		return fmt.Sprintf("%v granted on chain but the backend was not updated: %v", event.Metadata["role"], event.Metadata["reason"])
	case auth.ActivityEventRoleSyncFailed:
		return fmt.Sprintf("%v could not be granted on any property", event.Metadata["role"])
	default:
		return string(event.EventType)
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithDefaultObjectType sets the default object type for normalized records.
func WithDefaultObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
	}
}

func isRoleEvent(t auth.ActivityEventType) bool {
	return strings.HasPrefix(string(t), "role.")
}

func propertyID(event auth.ActivityEvent) string {
	return fmt.Sprint(event.Metadata["property_id"])
}

func resolveObjectID(event auth.ActivityEvent, resolver func(auth.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	var metadata map[string]any
	if len(event.Metadata) > 0 {
		metadata = maps.Clone(event.Metadata)
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}

	if event.Wallet != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyWallet] = event.Wallet
	}

	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
