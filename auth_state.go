package auth

import (
	"context"
	"sync"
	"time"
)

// AuthPhase is the lifecycle phase of the client session.
type AuthPhase string

const (
	PhaseIdle            AuthPhase = "idle"
	PhaseLoading         AuthPhase = "loading"
	PhaseAuthenticated   AuthPhase = "authenticated"
	PhaseUnauthenticated AuthPhase = "unauthenticated"
	// PhaseError is entered when the identity resolved but the session could
	// not be kept locally.
	PhaseError AuthPhase = "error"
)

// DefaultRequestTimeout bounds every backend call made by the state.
const DefaultRequestTimeout = 15 * time.Second

// Snapshot is an immutable view of the auth state.
type Snapshot struct {
	Phase           AuthPhase
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// Access resolves the permissions for the snapshot.
func (s Snapshot) Access() Access {
	return NewAccess(s.User, s.IsAuthenticated)
}

// TransitionHook observes every applied phase change.
type TransitionHook func(from, to AuthPhase)

// AuthStateOption customizes the auth state.
type AuthStateOption func(*AuthState)

// WithRequestTimeout bounds each backend call. Zero or negative disables it.
func WithRequestTimeout(d time.Duration) AuthStateOption {
	return func(s *AuthState) {
		s.timeout = d
	}
}

// WithAuthStateActivitySink sets the sink used for logout and restore events.
func WithAuthStateActivitySink(sink ActivitySink) AuthStateOption {
	return func(s *AuthState) {
		s.activitySink = NormalizeActivitySink(sink)
	}
}

// WithAuthStateLogger overrides the logger.
func WithAuthStateLogger(logger Logger) AuthStateOption {
	return func(s *AuthState) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTransitionHook registers a hook called after every applied transition.
func WithTransitionHook(h TransitionHook) AuthStateOption {
	return func(s *AuthState) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// AuthState owns the current user and the loading lifecycle of login and
// logout. Overlapping calls are resolved in favour of the most recently
// started one; settlements of older calls, and of any call finishing after
// Close, are dropped.
type AuthState struct {
	auth         Authenticator
	store        *SessionStore
	transitions  map[AuthPhase]map[AuthPhase]struct{}
	timeout      time.Duration
	activitySink ActivitySink
	logger       Logger
	hooks        []TransitionHook

	mu          sync.Mutex
	phase       AuthPhase
	user        *User
	errMsg      string
	generation  uint64
	closed      bool
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewAuthState wires the state to an authenticator and a session store.
func NewAuthState(authenticator Authenticator, store *SessionStore, opts ...AuthStateOption) *AuthState {
	_, logger := ResolveLogger("auth.state", nil, nil)
	if store == nil {
		store = NewSessionStore(nil)
	}
	s := &AuthState{
		auth:  authenticator,
		store: store,
		transitions: map[AuthPhase]map[AuthPhase]struct{}{
			PhaseIdle: {
				PhaseLoading: {},
			},
			PhaseLoading: {
				PhaseAuthenticated:   {},
				PhaseUnauthenticated: {},
				PhaseError:           {},
			},
			PhaseAuthenticated: {
				PhaseLoading: {},
			},
			PhaseUnauthenticated: {
				PhaseLoading: {},
			},
			PhaseError: {
				PhaseLoading: {},
			},
		},
		timeout:      DefaultRequestTimeout,
		activitySink: noopActivitySink{},
		logger:       logger,
		phase:        PhaseIdle,
		subscribers:  map[int]func(Snapshot){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Store exposes the session store backing the state.
func (s *AuthState) Store() *SessionStore {
	return s.store
}

// Snapshot returns the current view of the state.
func (s *AuthState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AuthState) snapshotLocked() Snapshot {
	var user *User
	if s.user != nil {
		user = s.user.Clone()
	}
	return Snapshot{
		Phase:           s.phase,
		User:            user,
		IsAuthenticated: s.user != nil && s.store.Has(),
		IsLoading:       s.phase == PhaseLoading,
		Error:           s.errMsg,
	}
}

// Access implements AccessProvider.
func (s *AuthState) Access() Access {
	return s.Snapshot().Access()
}

// Subscribe registers fn for every applied transition. The returned func
// removes the subscription.
func (s *AuthState) Subscribe(fn func(Snapshot)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close disposes the state. In-flight calls still return to their callers
// but no longer touch the state.
func (s *AuthState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subscribers = map[int]func(Snapshot){}
}

// Login resolves token, auto-provisioning unknown wallets, and makes the user
// current. The error is returned to the caller after being recorded.
func (s *AuthState) Login(ctx context.Context, token string, displayName ...string) (*User, error) {
	gen, ok := s.begin()
	if !ok {
		return nil, ErrInvalidTransition.Clone().WithMetadata(map[string]any{"reason": "state closed"})
	}

	callCtx, cancel := s.withTimeout(ctx)
	user, err := s.auth.LoginOrCreate(callCtx, token, displayName...)
	cancel()

	if err != nil {
		s.settle(gen, func() {
			s.user = nil
			s.errMsg = err.Error()
			s.transitionLocked(PhaseUnauthenticated)
		})
		return nil, err
	}

	committed, serr := s.commit(gen, func() error {
		return s.store.Set(ctx, token)
	}, func(serr error) {
		if serr != nil {
			s.user = nil
			s.errMsg = serr.Error()
			s.transitionLocked(PhaseError)
			return
		}
		s.user = user.Clone()
		s.errMsg = ""
		s.transitionLocked(PhaseAuthenticated)
	})
	if !committed {
		return user, nil
	}
	if serr != nil {
		s.logger.Error("failed to persist session token", "error", serr)
		return nil, serr
	}
	return user, nil
}

// Logout clears the local identity whatever the backend answers. A remote
// failure is logged and recorded, never returned.
func (s *AuthState) Logout(ctx context.Context) error {
	gen, ok := s.begin()
	if !ok {
		return nil
	}

	token, hasToken := s.store.Get()
	var remoteErr error
	if hasToken {
		callCtx, cancel := s.withTimeout(ctx)
		remoteErr = s.auth.Logout(callCtx, token)
		cancel()
	}

	committed, cerr := s.commit(gen, func() error {
		return s.store.Clear(ctx)
	}, func(error) {
		s.user = nil
		s.errMsg = ""
		s.transitionLocked(PhaseUnauthenticated)
	})
	if !committed {
		return nil
	}
	if cerr != nil {
		s.logger.Warn("session clear failed during logout", "error", cerr)
	}

	event := ActivityEvent{EventType: ActivityEventLogout, Wallet: token}
	if remoteErr != nil {
		s.logger.Warn("remote logout failed, local session cleared", "kind", ErrorKind(remoteErr), "error", remoteErr)
		event.EventType = ActivityEventLogoutRemoteError
		event.Metadata = map[string]any{"kind": ErrorKind(remoteErr), "error": remoteErr.Error()}
	}
	RecordActivity(ctx, s.activitySink, s.logger, event)
	return nil
}

// Restore loads the persisted token and resolves it. Any failure clears the
// session store; no new user is provisioned.
func (s *AuthState) Restore(ctx context.Context) (*User, error) {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("session load failed", "error", err)
	}

	gen, ok := s.begin()
	if !ok {
		return nil, nil
	}

	if token == "" {
		s.settle(gen, func() {
			s.user = nil
			s.transitionLocked(PhaseUnauthenticated)
		})
		return nil, err
	}

	callCtx, cancel := s.withTimeout(ctx)
	user, lerr := s.auth.Login(callCtx, token)
	cancel()

	if lerr != nil {
		committed, cerr := s.commit(gen, func() error {
			return s.store.Clear(ctx)
		}, func(error) {
			s.user = nil
			s.errMsg = ""
			s.transitionLocked(PhaseUnauthenticated)
		})
		if !committed {
			return nil, lerr
		}
		if cerr != nil {
			s.logger.Warn("session clear failed during restore", "error", cerr)
		}
		RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventSessionRejected,
			Wallet:    token,
			Metadata:  map[string]any{"kind": ErrorKind(lerr)},
		})
		return nil, lerr
	}

	s.settle(gen, func() {
		s.user = user.Clone()
		s.errMsg = ""
		s.transitionLocked(PhaseAuthenticated)
	})
	RecordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventSessionRestored,
		UserID:    user.ID,
		Wallet:    token,
	})
	return user, nil
}

func (s *AuthState) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// begin starts a new call: it takes the next generation and moves to loading.
func (s *AuthState) begin() (uint64, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	s.generation++
	gen := s.generation
	changed := s.transitionLocked(PhaseLoading)
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if changed {
		notify(subs, snap)
	}
	return gen, true
}

// settle applies fn if gen is still the latest call and the state is open.
func (s *AuthState) settle(gen uint64, fn func()) bool {
	ok, _ := s.commit(gen, func() error { return nil }, func(error) { fn() })
	return ok
}

// commit runs persist and then apply under the state lock, only if gen is
// still the latest call. A newer call cannot start until both have run.
func (s *AuthState) commit(gen uint64, persist func() error, apply func(error)) (bool, error) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("dropping stale settlement", "generation", gen)
		return false, nil
	}
	err := persist()
	apply(err)
	snap := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return true, err
}

func (s *AuthState) transitionLocked(to AuthPhase) bool {
	from := s.phase
	if from == to {
		return false
	}
	if !s.canTransition(from, to) {
		s.logger.Error("invalid auth state transition", "from", from, "to", to,
			"error", ErrInvalidTransition.Clone().WithMetadata(map[string]any{"from": from, "to": to}))
		return false
	}
	s.phase = to
	s.logger.Debug("auth state transition", "from", from, "to", to)
	for _, h := range s.hooks {
		h(from, to)
	}
	return true
}

func (s *AuthState) canTransition(from, to AuthPhase) bool {
	if allowed, ok := s.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (s *AuthState) subscribersLocked() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

var _ AccessProvider = (*AuthState)(nil)
