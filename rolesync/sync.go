package rolesync

import (
	"context"
	"time"

	"github.com/google/uuid"
	auth "github.com/tokenestate/go-estate-auth"
)

// Synchronizer grants an on-chain role property by property and then mirrors
// the matching role into the backend.
//
// Grants are sent one after the other, each exactly once; there is no retry
// and no rollback. The mirror is called once, after the loop, and only when at
// least one grant succeeded.
type Synchronizer struct {
	granter      Granter
	mirror       Mirror
	activitySink auth.ActivitySink
	observer     Observer
	logger       auth.Logger
	now          func() time.Time
}

// Option customizes the synchronizer
type Option func(*Synchronizer)

// WithActivitySink sets where per-property and aggregate notifications go.
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Synchronizer) {
		s.activitySink = auth.NormalizeActivitySink(sink)
	}
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(s *Synchronizer) {
		s.observer = o
	}
}

// WithLogger overrides the logger.
func WithLogger(logger auth.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(s *Synchronizer) {
		if clock != nil {
			s.now = clock
		}
	}
}

// New creates a synchronizer.
func New(granter Granter, mirror Mirror, opts ...Option) *Synchronizer {
	_, logger := auth.ResolveLogger("rolesync", nil, nil)
	s := &Synchronizer{
		granter:      granter,
		mirror:       mirror,
		activitySink: auth.NormalizeActivitySink(nil),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sync runs the grants in req. The only error returned is a validation
// failure; every other outcome, partial or not, is described by the report.
func (s *Synchronizer) Sync(ctx context.Context, req Request) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}

	report := Report{
		RunID:       uuid.New(),
		Role:        req.Role,
		BackendRole: BackendRoleFor(req.Role),
		Results:     make([]PropertyResult, 0, len(req.Properties)),
		StartedAt:   s.now(),
	}
	actor := req.Operator
	if actor == (auth.ActorRef{}) {
		actor = auth.ActorRef{ID: "rolesync", Type: "system"}
	}

	for _, prop := range req.Properties {
		result := PropertyResult{PropertyID: prop.ID, Name: prop.Name}

		txRef, err := s.granter.GrantRole(ctx, prop.ID, req.Role, req.Grantee)
		result.TxRef = txRef
		if err != nil {
			result.Err = err
			result.Reason = err.Error()
			report.FailureCount++
			s.logger.Warn("role grant failed", "run_id", report.RunID, "property_id", prop.ID,
				"role", req.Role, "kind", auth.ErrorKind(err), "error", err)
		} else {
			result.Success = true
			report.SuccessCount++
			s.logger.Info("role granted", "run_id", report.RunID, "property_id", prop.ID,
				"role", req.Role, "tx", txRef)
		}
		report.Results = append(report.Results, result)

		if s.observer != nil {
			s.observer.ObserveGrant(string(req.Role), result.Success)
		}
		s.notifyGrant(ctx, actor, req, report.RunID, result)
	}

	if report.SuccessCount > 0 {
		report.MirrorAttempted = true
		s.mirrorRole(ctx, req, &report)
		s.notifyMirror(ctx, actor, req, report)
	}

	report.Status = statusFor(report)
	report.FinishedAt = s.now()
	s.notifySync(ctx, actor, req, report)

	if s.observer != nil {
		s.observer.ObserveSync(string(report.Status), report.FinishedAt.Sub(report.StartedAt))
	}
	return report, nil
}

// mirrorRole raises the backend role of req.UserID to report.BackendRole.
// A user already at or above it is left alone.
func (s *Synchronizer) mirrorRole(ctx context.Context, req Request, report *Report) {
	current, err := s.currentRole(ctx, req.UserID)
	if err != nil {
		report.MirrorError = err
		report.MirrorReason = err.Error()
		s.logger.Error("backend role lookup failed after on-chain grant", "run_id", report.RunID,
			"user_id", req.UserID, "granted", report.SuccessCount, "error", err)
		return
	}
	report.PreviousRole = current

	if current.IsAtLeast(report.BackendRole) {
		report.MirrorSkipped = true
		s.logger.Info("backend role kept", "run_id", report.RunID, "user_id", req.UserID,
			"role", current, "mapped", report.BackendRole)
		return
	}

	if _, err := s.mirror.UpdateUserRole(ctx, req.UserID, report.BackendRole); err != nil {
		report.MirrorError = err
		report.MirrorReason = err.Error()
		s.logger.Error("backend role mirror failed after on-chain grant", "run_id", report.RunID,
			"user_id", req.UserID, "granted", report.SuccessCount, "error", err)
	}
}

func (s *Synchronizer) currentRole(ctx context.Context, userID string) (auth.Role, error) {
	users, err := s.mirror.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.ID == userID {
			return u.Role, nil
		}
	}
	return "", auth.NotFoundError(nil, "backend user "+userID+" not found")
}

func statusFor(r Report) Status {
	switch {
	case r.SuccessCount == 0:
		return StatusFailed
	case r.MirrorError != nil:
		return StatusPartialSync
	case r.FailureCount > 0:
		return StatusPartialGrant
	default:
		return StatusSynced
	}
}

func (s *Synchronizer) notifyGrant(ctx context.Context, actor auth.ActorRef, req Request, runID uuid.UUID, result PropertyResult) {
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleGranted,
		Actor:     actor,
		UserID:    req.UserID,
		Wallet:    req.Grantee,
		Metadata: map[string]any{
			"run_id":      runID.String(),
			"property_id": result.PropertyID,
			"role":        string(req.Role),
			"tx_ref":      result.TxRef,
		},
	}
	if !result.Success {
		event.EventType = auth.ActivityEventRoleGrantFailure
		event.Metadata["reason"] = result.Reason
	}
	auth.RecordActivity(ctx, s.activitySink, s.logger, event)
}

func (s *Synchronizer) notifyMirror(ctx context.Context, actor auth.ActorRef, req Request, report Report) {
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventRoleMirrored,
		Actor:     actor,
		UserID:    req.UserID,
		Wallet:    req.Grantee,
		Metadata: map[string]any{
			"run_id":        report.RunID.String(),
			"backend_role":  string(report.BackendRole),
			"success_count": report.SuccessCount,
		},
	}
	if report.PreviousRole != "" {
		event.Metadata["previous_role"] = string(report.PreviousRole)
	}
	if report.MirrorSkipped {
		event.Metadata["kept"] = true
	}
	if report.MirrorError != nil {
		event.EventType = auth.ActivityEventRoleMirrorFailure
		event.Metadata["reason"] = report.MirrorReason
	}
	auth.RecordActivity(ctx, s.activitySink, s.logger, event)
}

func (s *Synchronizer) notifySync(ctx context.Context, actor auth.ActorRef, req Request, report Report) {
	meta := map[string]any{
		"run_id":        report.RunID.String(),
		"status":        string(report.Status),
		"role":          string(req.Role),
		"success_count": report.SuccessCount,
		"failure_count": report.FailureCount,
	}
	if report.MirrorReason != "" {
		meta["reason"] = report.MirrorReason
	}
	auth.RecordActivity(ctx, s.activitySink, s.logger, auth.ActivityEvent{
		EventType: report.Status.EventType(),
		Actor:     actor,
		UserID:    req.UserID,
		Wallet:    req.Grantee,
		Metadata:  meta,
	})
}
