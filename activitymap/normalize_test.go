package activitymap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/activitymap"
)

const wallet = "0x1234567890abcdef1234567890abcdef12345678"

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventUserProvisioned,
		Actor:     auth.ActorRef{ID: wallet, Type: "wallet"},
		UserID:    "user-100",
		Wallet:    wallet,
		Metadata: map[string]any{
			"name": "User 0x1234...5678",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != wallet {
		t.Fatalf("expected actor_id %s, got %q", wallet, out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventUserProvisioned) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventUserProvisioned, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if out.Level != activitymap.LevelSuccess {
		t.Fatalf("expected level success, got %q", out.Level)
	}
	if out.Message != "account created for "+wallet {
		t.Fatalf("unexpected message %q", out.Message)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "wallet" {
		t.Fatalf("expected metadata actor_type wallet, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.Metadata[activitymap.MetadataKeyWallet] != wallet {
		t.Fatalf("expected metadata wallet, got %#v", out.Metadata[activitymap.MetadataKeyWallet])
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeRoleGrant(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventRoleGrantFailure,
		UserID:    "user-7",
		Metadata: map[string]any{
			"property_id": uint64(3),
			"role":        "MANAGER_ROLE",
			"reason":      "user rejected",
		},
	})

	if out.Channel != "role" {
		t.Fatalf("expected channel role, got %q", out.Channel)
	}
	if out.ObjectType != "property" || out.ObjectID != "3" {
		t.Fatalf("expected property 3, got %q %q", out.ObjectType, out.ObjectID)
	}
	if out.Level != activitymap.LevelError {
		t.Fatalf("expected level error, got %q", out.Level)
	}
	if out.Message != "MANAGER_ROLE grant failed on property 3: user rejected" {
		t.Fatalf("unexpected message %q", out.Message)
	}
}

func TestNormalizeMirrorFailureIsWarning(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventRoleMirrorFailure,
		UserID:    "user-7",
		Metadata:  map[string]any{"reason": "backend down"},
	})
	if out.Level != activitymap.LevelWarning {
		t.Fatalf("expected level warning, got %q", out.Level)
	}
	if out.ObjectType != "user" || out.ObjectID != "user-7" {
		t.Fatalf("expected user object, got %q %q", out.ObjectType, out.ObjectID)
	}
}

func TestNormalizeSyncOutcomes(t *testing.T) {
	t.Parallel()

	cases := map[auth.ActivityEventType]activitymap.Level{
		auth.ActivityEventRoleSynced:       activitymap.LevelSuccess,
		auth.ActivityEventRolePartialGrant: activitymap.LevelWarning,
		auth.ActivityEventRolePartialSync:  activitymap.LevelWarning,
		auth.ActivityEventRoleSyncFailed:   activitymap.LevelError,
	}
	for eventType, want := range cases {
		out := activitymap.Normalize(auth.ActivityEvent{
			EventType: eventType,
			UserID:    "user-7",
			Metadata:  map[string]any{"role": "MANAGER_ROLE", "success_count": 0, "failure_count": 2},
		})
		if out.Level != want {
			t.Fatalf("%s: expected level %q, got %q", eventType, want, out.Level)
		}
		if out.Channel != "role" {
			t.Fatalf("%s: expected role channel, got %q", eventType, out.Channel)
		}
		if out.Message == string(eventType) {
			t.Fatalf("%s: expected a human message", eventType)
		}
	}
}

func TestNormalizeMirrorKeptRole(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventRoleMirrored,
		UserID:    "user-7",
		Metadata:  map[string]any{"backend_role": "manager", "previous_role": "admin", "kept": true},
	})
	if out.Message != "backend role kept at admin" {
		t.Fatalf("unexpected message %q", out.Message)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventSessionRejected,
		Actor:     auth.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"session_id":                     "slot-1",
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("session"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			if v, ok := e.Metadata["session_id"].(string); ok {
				return v
			}
			return ""
		}),
	)

	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "session" {
		t.Fatalf("expected object_type session, got %q", out.ObjectType)
	}
	if out.ObjectID != "slot-1" {
		t.Fatalf("expected object_id slot-1, got %q", out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyActorType] != "existing" {
		t.Fatalf("expected existing actor_type preserved, got %#v", out.Metadata[activitymap.MetadataKeyActorType])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallbackChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses actor id when present",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: "actor-1"}, UserID: "user-1"},
			expect: "actor-1",
		},
		{
			name:   "uses user id when actor id missing",
			event:  auth.ActivityEvent{Actor: auth.ActorRef{ID: ""}, UserID: "user-2"},
			expect: "user-2",
		},
		{
			name:   "uses default fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			expect: "system",
		},
		{
			name:   "uses configured fallback when actor and user missing",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("job")},
			expect: "job",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestFeedKeepsNewestFirst(t *testing.T) {
	t.Parallel()

	feed := activitymap.NewFeed(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := feed.Record(ctx, auth.ActivityEvent{EventType: auth.ActivityEventLogout, UserID: id}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got := feed.Recent(0)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ObjectID != "c" || got[1].ObjectID != "b" {
		t.Fatalf("expected c then b, got %q %q", got[0].ObjectID, got[1].ObjectID)
	}
	if one := feed.Recent(1); len(one) != 1 || one[0].ObjectID != "c" {
		t.Fatalf("expected newest entry only, got %+v", one)
	}
}

func TestFanoutRunsEverySink(t *testing.T) {
	t.Parallel()

	var calls int
	failing := auth.ActivitySinkFunc(func(context.Context, auth.ActivityEvent) error {
		calls++
		return errors.New("boom")
	})
	feed := activitymap.NewFeed(0)

	err := activitymap.Fanout(failing, nil, feed).Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLogout})
	if err == nil {
		t.Fatalf("expected first error to be returned")
	}
	if calls != 1 || len(feed.Recent(0)) != 1 {
		t.Fatalf("expected both sinks to run, calls=%d feed=%d", calls, len(feed.Recent(0)))
	}
}
