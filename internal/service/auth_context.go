package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/target/helpdesk-portal/internal/clock"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/observability/metrics"
	"github.com/target/helpdesk-portal/internal/observability/statsd"
	"github.com/target/helpdesk-portal/internal/ports"
)

// AuthContextOptions groups dependencies for AuthContext.
type AuthContextOptions struct {
	Gateway ports.AuthGateway
	Store   ports.SessionStore
	// Events is optional; when set, local logouts are broadcast to other instances.
	Events  ports.SessionEvents
	Metrics statsd.Sink
	Clock   clock.Clock
	Logger  *slog.Logger
}

// LoginOutcome is the result of a login attempt as shown to the UI.
type LoginOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// transition is a committed state together with the epoch it was committed in.
type transition struct {
	state domainauth.State
	epoch uint64
}

// AuthContext is the process-wide authentication state machine:
// INITIALIZING -> {AUTHENTICATED, UNAUTHENTICATED}, AUTHENTICATED <-> UNAUTHENTICATED.
//
// Login and logout bump the epoch; network results captured under an older
// epoch are dropped. Listeners are notified in transition order, outside the
// state lock.
type AuthContext struct {
	gateway ports.AuthGateway
	store   ports.SessionStore
	events  ports.SessionEvents
	metrics statsd.Sink
	clock   clock.Clock
	logger  *slog.Logger

	// opMu serializes login and logout so a server logout cannot clear a newer session.
	opMu sync.Mutex

	mu          sync.Mutex
	state       domainauth.State
	epoch       uint64
	initialized bool

	listeners  map[int]func(transition)
	nextID     int
	pending    []transition
	delivering bool
}

// NewAuthContext creates an AuthContext in the INITIALIZING phase.
func NewAuthContext(opts AuthContextOptions) (*AuthContext, error) {
	if opts.Gateway == nil {
		return nil, errors.New("auth gateway is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthContext{
		gateway: opts.Gateway,
		store:   opts.Store,
		events:  opts.Events,
		metrics: opts.Metrics,
		clock:   c,
		logger:  logger.With("component", "auth_context"),
		state: domainauth.State{
			Phase:   domainauth.PhaseInitializing,
			Loading: true,
		},
		listeners: make(map[int]func(transition)),
	}, nil
}

// State returns a copy of the current state.
func (a *AuthContext) State() domainauth.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Epoch returns the current ordering epoch.
func (a *AuthContext) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// Subscribe registers fn to receive every committed state. The returned
// function removes the subscription.
func (a *AuthContext) Subscribe(fn func(domainauth.State)) (unsubscribe func()) {
	return a.watch(func(tr transition) { fn(tr.state) })
}

func (a *AuthContext) watch(fn func(transition)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.listeners, id)
		})
	}
}

// Init runs the startup who-am-I check once. Any failure clears the store and
// settles to UNAUTHENTICATED without an error.
func (a *AuthContext) Init(ctx context.Context) {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return
	}
	a.initialized = true
	epoch := a.epoch
	a.mu.Unlock()

	start := a.clock.Now()
	user, err := a.gateway.FetchCurrentUser(ctx)
	a.emit(metrics.AuthMetric{Operation: metrics.OpInit, Result: resultOf(err), Duration: elapsed(a.clock, start), Err: err})

	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		a.logger.DebugContext(ctx, "dropping stale session check result", "epoch", epoch)
		return
	}
	if err != nil {
		if !apperrors.IsNotAuthenticated(err) {
			a.logger.WarnContext(ctx, "startup session check failed", "error", err)
		}
		a.clearCredentialsLocked()
		a.setUnauthenticatedLocked("", "")
	} else {
		a.commitAuthenticatedLocked(user)
	}
	a.mu.Unlock()
	a.flush()
}

// Login attempts to sign in. Credentials held before the attempt are dropped.
func (a *AuthContext) Login(ctx context.Context, username, password string) LoginOutcome {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	a.epoch++
	epoch := a.epoch
	a.initialized = true
	a.clearCredentialsLocked()
	a.enqueueLocked(domainauth.State{Phase: domainauth.PhaseUnauthenticated, Loading: true})
	a.mu.Unlock()
	a.flush()

	start := a.clock.Now()
	res, err := a.gateway.Login(ctx, username, password)
	a.emit(metrics.AuthMetric{Operation: metrics.OpLogin, Result: resultOf(err), Duration: elapsed(a.clock, start), Err: err})

	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		a.logger.DebugContext(ctx, "dropping superseded login result", "epoch", epoch)
		if err != nil {
			return LoginOutcome{Error: apperrors.UserMessage(err)}
		}
		return LoginOutcome{}
	}
	if err != nil {
		msg := apperrors.UserMessage(err)
		a.setUnauthenticatedLocked(msg, "")
		a.mu.Unlock()
		a.flush()
		a.logger.InfoContext(ctx, "login failed", "username", username, "code", apperrors.GetCode(err))
		return LoginOutcome{Error: msg}
	}

	a.store.SetSession(res.Token, res.RefreshToken, res.ExpiresIn)
	a.commitAuthenticatedLocked(res.User)
	a.mu.Unlock()
	a.flush()

	a.logger.InfoContext(ctx, "login succeeded", "user_id", res.User.ID, "role", res.User.Role)
	return LoginOutcome{Success: true}
}

// Logout signs out locally and notifies the API best-effort. Always succeeds.
func (a *AuthContext) Logout(ctx context.Context) {
	a.logout(ctx, "", metrics.ReasonUser)
}

// ForceLogout ends the session after a refresh failure. No error is shown;
// the neutral sign-in notice is set instead.
func (a *AuthContext) ForceLogout(ctx context.Context) {
	a.logout(ctx, apperrors.MsgSignInAgain, metrics.ReasonForced)
}

// forceLogoutAt ends the session only if no login or logout happened since epoch.
func (a *AuthContext) forceLogoutAt(ctx context.Context, epoch uint64) bool {
	if a.Epoch() != epoch {
		return false
	}
	a.opMu.Lock()
	defer a.opMu.Unlock()
	if a.Epoch() != epoch {
		return false
	}
	a.logoutLocked(ctx, apperrors.MsgSignInAgain, metrics.ReasonForced)
	return true
}

func (a *AuthContext) logout(ctx context.Context, notice, reason string) {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	a.logoutLocked(ctx, notice, reason)
}

// logoutLocked requires opMu.
func (a *AuthContext) logoutLocked(ctx context.Context, notice, reason string) {
	a.mu.Lock()
	a.epoch++
	a.initialized = true
	var userID string
	if a.state.User != nil {
		userID = a.state.User.ID
	}
	a.setUnauthenticatedLocked("", notice)
	a.mu.Unlock()
	a.flush()

	a.gateway.Logout(ctx)
	a.emit(metrics.AuthMetric{Operation: metrics.OpLogout, Result: metrics.ResultSuccess, Reason: reason})

	if userID == "" {
		return
	}
	a.logger.InfoContext(ctx, "signed out", "user_id", userID, "reason", reason)
	if a.events != nil && reason == metrics.ReasonUser {
		if err := a.events.PublishLogout(ctx, userID); err != nil {
			a.logger.WarnContext(ctx, "publish logout event failed", "error", err)
		}
	}
}

// clearCredentialsLocked drops the stored token and the gateway's cookies. Requires mu.
func (a *AuthContext) clearCredentialsLocked() {
	a.store.Clear()
	a.gateway.ClearCredentials()
}

// ClearError drops the visible login error and notice.
func (a *AuthContext) ClearError() {
	a.mu.Lock()
	if a.state.Error == "" && a.state.Notice == "" {
		a.mu.Unlock()
		return
	}
	next := a.state.Clone()
	next.Error = ""
	next.Notice = ""
	a.enqueueLocked(next)
	a.mu.Unlock()
	a.flush()
}

// UpdateUser replaces the signed-in user's profile. The user id must match and
// the role is kept; the API is the authority on roles.
func (a *AuthContext) UpdateUser(user domainauth.User) error {
	a.mu.Lock()
	if !a.state.IsAuthenticated || a.state.User == nil {
		a.mu.Unlock()
		return apperrors.NotAuthenticated(nil)
	}
	if user.ID != a.state.User.ID {
		a.mu.Unlock()
		return apperrors.ValidationField("id", "Cannot change the signed-in user.")
	}
	user.Role = a.state.User.Role
	a.commitAuthenticatedLocked(user)
	a.mu.Unlock()
	a.flush()
	return nil
}

// Revalidate re-checks the session with the API, catching sessions ended
// elsewhere. Only a definite NotAuthenticated signs the user out; transient
// failures keep the current state and are returned.
func (a *AuthContext) Revalidate(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Phase != domainauth.PhaseAuthenticated {
		a.mu.Unlock()
		return nil
	}
	epoch := a.epoch
	a.mu.Unlock()

	start := a.clock.Now()
	user, err := a.gateway.FetchCurrentUser(ctx)
	a.emit(metrics.AuthMetric{Operation: metrics.OpRevalidate, Result: resultOf(err), Duration: elapsed(a.clock, start), Err: err})

	a.mu.Lock()
	if epoch != a.epoch || a.state.Phase != domainauth.PhaseAuthenticated {
		a.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		if *a.state.User != user {
			a.commitAuthenticatedLocked(user)
		}
		a.mu.Unlock()
		a.flush()
		return nil
	case apperrors.IsNotAuthenticated(err):
		a.epoch++
		a.clearCredentialsLocked()
		a.setUnauthenticatedLocked("", apperrors.MsgSignInAgain)
		a.mu.Unlock()
		a.flush()
		a.logger.InfoContext(ctx, "session ended elsewhere", "error", err)
		return nil
	default:
		a.mu.Unlock()
		a.logger.WarnContext(ctx, "session revalidation failed, keeping state", "error", err)
		return err
	}
}

// CommitRefresh stores refreshed credentials if the session captured at epoch is still current.
func (a *AuthContext) CommitRefresh(epoch uint64, res *ports.RefreshResult) bool {
	if res == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if epoch != a.epoch || !a.state.IsAuthenticated {
		return false
	}
	a.store.SetSession(res.Token, res.RefreshToken, res.ExpiresIn)
	return true
}

// HandleSessionEvent reacts to a session event from another instance.
func (a *AuthContext) HandleSessionEvent(ctx context.Context, evt ports.SessionEvent) {
	if evt.Type != ports.SessionEventLogout {
		return
	}
	st := a.State()
	if st.User == nil || st.User.ID != evt.UserID {
		return
	}
	if err := a.Revalidate(ctx); err != nil {
		a.logger.WarnContext(ctx, "revalidate after remote logout failed", "error", err)
	}
}

// commitAuthenticatedLocked is the single writer of the AUTHENTICATED state.
func (a *AuthContext) commitAuthenticatedLocked(user domainauth.User) {
	u := user
	a.enqueueLocked(domainauth.State{
		Phase:           domainauth.PhaseAuthenticated,
		User:            &u,
		IsAuthenticated: true,
	})
}

// setUnauthenticatedLocked is the single writer of the UNAUTHENTICATED state.
func (a *AuthContext) setUnauthenticatedLocked(errMsg, notice string) {
	a.enqueueLocked(domainauth.State{
		Phase:  domainauth.PhaseUnauthenticated,
		Error:  errMsg,
		Notice: notice,
	})
}

func (a *AuthContext) enqueueLocked(next domainauth.State) {
	if next.Phase == a.state.Phase && statesEqual(next, a.state) {
		return
	}
	a.state = next
	a.pending = append(a.pending, transition{state: next.Clone(), epoch: a.epoch})
}

// flush delivers queued transitions in order. Only one goroutine delivers at a
// time; transitions queued by listeners are delivered by the same loop.
func (a *AuthContext) flush() {
	a.mu.Lock()
	if a.delivering {
		a.mu.Unlock()
		return
	}
	a.delivering = true
	for len(a.pending) > 0 {
		tr := a.pending[0]
		a.pending = a.pending[1:]
		fns := a.listenersLocked()
		a.mu.Unlock()
		for _, fn := range fns {
			fn(transition{state: tr.state.Clone(), epoch: tr.epoch})
		}
		a.mu.Lock()
	}
	a.delivering = false
	a.mu.Unlock()
}

func (a *AuthContext) listenersLocked() []func(transition) {
	ids := make([]int, 0, len(a.listeners))
	for id := range a.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(transition), len(ids))
	for i, id := range ids {
		fns[i] = a.listeners[id]
	}
	return fns
}

func (a *AuthContext) emit(m metrics.AuthMetric) {
	metrics.EmitAuth(a.metrics, m)
}

func statesEqual(x, y domainauth.State) bool {
	if x.Loading != y.Loading || x.IsAuthenticated != y.IsAuthenticated ||
		x.Error != y.Error || x.Notice != y.Notice {
		return false
	}
	if (x.User == nil) != (y.User == nil) {
		return false
	}
	return x.User == nil || *x.User == *y.User
}

func resultOf(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}

// elapsed is a small helper for callers timing operations against the injected clock.
func elapsed(c clock.Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}
