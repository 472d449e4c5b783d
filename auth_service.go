package auth

import (
	"context"
	"strings"
)

// AuthService resolves identity tokens into users against the backend and
// auto-provisions unknown wallets.
type AuthService struct {
	backend      Backend
	activitySink ActivitySink
	logger       Logger
	provider     LoggerProvider
}

// AuthServiceOption customizes the service.
type AuthServiceOption func(*AuthService)

// WithAuthServiceActivitySink sets the sink used for login and provisioning events.
func WithAuthServiceActivitySink(sink ActivitySink) AuthServiceOption {
	return func(s *AuthService) {
		s.activitySink = NormalizeActivitySink(sink)
	}
}

// NewAuthService will create a new AuthService
func NewAuthService(backend Backend, opts ...AuthServiceOption) *AuthService {
	loggerProvider, logger := ResolveLogger("auth.service", nil, nil)
	s := &AuthService{
		backend:      backend,
		activitySink: noopActivitySink{},
		logger:       logger,
		provider:     loggerProvider,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// WithLogger overrides the logger used by the service.
func (s *AuthService) WithLogger(l Logger) *AuthService {
	s.provider, s.logger = ResolveLogger("auth.service", nil, l)
	return s
}

// WithLoggerProvider overrides the logger provider used by the service.
func (s *AuthService) WithLoggerProvider(provider LoggerProvider) *AuthService {
	s.provider, s.logger = ResolveLogger("auth.service", provider, nil)
	return s
}

// Login resolves token into the backend user. Malformed tokens are rejected
// before any network call.
func (s *AuthService) Login(ctx context.Context, token string) (*User, error) {
	token = NormalizeIdentity(token)
	if err := ValidateIdentity(token); err != nil {
		return nil, err
	}

	user, err := s.backend.Login(ctx, token)
	if err != nil {
		s.logger.Debug("login failed", "kind", ErrorKind(err), "error", err)
		RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Wallet:    token,
			Metadata:  map[string]any{"kind": ErrorKind(err)},
		})
		return nil, err
	}
	if user == nil {
		return nil, NotFoundError(nil, "backend returned no user")
	}
	if !user.Role.IsValid() {
		err := UnauthorizedError(nil, "backend user has no valid role")
		s.logger.Warn("rejecting backend user", "user_id", user.ID, "role", string(user.Role))
		RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			UserID:    user.ID,
			Wallet:    token,
			Metadata:  map[string]any{"kind": ErrorKind(err), "role": string(user.Role)},
		})
		return nil, err
	}

	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID,
		Wallet:    token,
		Metadata:  map[string]any{"role": string(user.Role)},
	})
	return user, nil
}

// LoginOrCreate logs in, creating the user first when the backend reports the
// identity as unknown (NotFound) or rejected (Unauthorized). Creation and the
// follow-up login happen at most once each. Any other failure is returned
// unchanged without attempting a creation.
func (s *AuthService) LoginOrCreate(ctx context.Context, token string, displayName ...string) (*User, error) {
	token = NormalizeIdentity(token)
	user, err := s.Login(ctx, token)
	if err == nil {
		return user, nil
	}

	if !IsNotFound(err) && !IsUnauthorized(err) {
		return nil, err
	}

	name := DisplayNameFor(token)
	if len(displayName) > 0 && strings.TrimSpace(displayName[0]) != "" {
		name = strings.TrimSpace(displayName[0])
	}

	s.logger.Info("auto-provisioning user", "wallet", token, "cause", ErrorKind(err))

	created, cerr := s.backend.CreateUser(ctx, NewUserRequest{
		Wallet:         token,
		Name:           name,
		Role:           RoleUser,
		IdempotencyKey: ProvisionKey(token),
	})
	if cerr != nil {
		return nil, s.provisionFailed(ctx, &ProvisionError{Wallet: token, Original: err, Create: cerr})
	}

	user, rerr := s.Login(ctx, token)
	if rerr != nil {
		return nil, s.provisionFailed(ctx, &ProvisionError{Wallet: token, Original: err, Retry: rerr})
	}

	meta := map[string]any{"name": name}
	if created != nil {
		meta["created_id"] = created.ID
	}
	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserProvisioned,
		UserID:    user.ID,
		Wallet:    token,
		Metadata:  meta,
	})
	return user, nil
}

func (s *AuthService) provisionFailed(ctx context.Context, perr *ProvisionError) error {
	s.logger.Error("auto-provision failed", "wallet", perr.Wallet, "error", perr)
	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventProvisionFailure,
		Wallet:    perr.Wallet,
		Metadata:  perr.Metadata(),
	})
	return perr
}

// Logout asks the backend to invalidate token. The error is informational:
// callers clear local identity whatever happens here.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = NormalizeIdentity(token)
	if token == "" {
		return nil
	}
	if err := s.backend.Logout(ctx, token); err != nil {
		s.logger.Warn("remote logout failed", "kind", ErrorKind(err), "error", err)
		return err
	}
	return nil
}

var _ Authenticator = (*AuthService)(nil)
