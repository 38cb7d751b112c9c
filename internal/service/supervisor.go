package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/target/helpdesk-portal/internal/clock"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/observability/metrics"
	"github.com/target/helpdesk-portal/internal/observability/statsd"
	"github.com/target/helpdesk-portal/internal/ports"
	"golang.org/x/sync/singleflight"
)

// Refresh triggers.
const (
	TriggerPeriodic = "periodic"
	TriggerExpiry   = "expiry"
	TriggerManual   = "manual"
)

// Supervisor defaults.
const (
	DefaultRefreshInterval  = 10 * time.Minute
	DefaultRefreshLookahead = 5 * time.Minute
)

var (
	// ErrSupervisorIdle is returned by ManualRefresh when no session is supervised.
	ErrSupervisorIdle = errors.New("no authenticated session to refresh")
	errStaleRefresh   = errors.New("refresh result superseded")
)

// SupervisorOptions groups dependencies for Supervisor.
type SupervisorOptions struct {
	Auth    *AuthContext
	Gateway ports.AuthGateway
	Store   ports.SessionStore
	Clock   clock.Clock
	Metrics statsd.Sink
	Logger  *slog.Logger
	// Interval is the periodic refresh period.
	Interval time.Duration
	// Lookahead is how long before expiry the one-shot refresh fires.
	Lookahead time.Duration
}

// Supervisor keeps the session fresh while the user is authenticated and
// present. It runs two timers: a periodic refresh and a one-shot refresh
// shortly before expiry. Any refresh failure ends the session.
type Supervisor struct {
	auth      *AuthContext
	gateway   ports.AuthGateway
	store     ports.SessionStore
	clock     clock.Clock
	metrics   statsd.Sink
	logger    *slog.Logger
	interval  time.Duration
	lookahead time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu       sync.Mutex
	running  bool
	visible  bool
	closed   bool
	epoch    uint64
	gen      uint64
	periodic clock.Timer
	oneShot  clock.Timer

	unsubscribe func()
}

// NewSupervisor creates a Supervisor attached to auth. It starts supervising
// immediately if auth is already authenticated.
func NewSupervisor(opts SupervisorOptions) (*Supervisor, error) {
	if opts.Auth == nil {
		return nil, errors.New("auth context is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("auth gateway is required")
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	lookahead := opts.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultRefreshLookahead
	}
	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		auth:      opts.Auth,
		gateway:   opts.Gateway,
		store:     opts.Store,
		clock:     c,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "session_supervisor"),
		interval:  interval,
		lookahead: lookahead,
		ctx:       ctx,
		cancel:    cancel,
		visible:   true,
	}

	s.unsubscribe = opts.Auth.watch(s.onTransition)
	if st := opts.Auth.State(); st.IsAuthenticated {
		s.onTransition(transition{state: st, epoch: opts.Auth.Epoch()})
	}
	return s, nil
}

func (s *Supervisor) onTransition(tr transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !tr.state.IsAuthenticated {
		s.running = false
		s.cancelTimersLocked()
		return
	}
	if s.running && s.epoch == tr.epoch {
		return
	}
	s.running = true
	s.epoch = tr.epoch
	s.scheduleLocked(false)
}

// scheduleLocked replaces both timers. After a refresh, a session that is
// still inside the lookahead window gets no one-shot; the periodic tick covers it.
func (s *Supervisor) scheduleLocked(afterRefresh bool) {
	s.cancelTimersLocked()
	if !s.running || !s.visible || s.closed {
		return
	}
	gen := s.gen

	s.periodic = s.clock.AfterFunc(s.interval, func() { s.fire(gen, TriggerPeriodic) })

	expiresAt, ok := s.store.ExpiresAt()
	if !ok {
		return
	}
	delay := expiresAt.Add(-s.lookahead).Sub(s.clock.Now())
	if delay <= 0 {
		if afterRefresh {
			s.logger.Warn("refreshed session is shorter than the lookahead window",
				"expires_at", expiresAt,
				"lookahead", s.lookahead)
			return
		}
		delay = 0
	}
	s.oneShot = s.clock.AfterFunc(delay, func() { s.fire(gen, TriggerExpiry) })
}

// cancelTimersLocked stops both timers and fences callbacks already in flight.
func (s *Supervisor) cancelTimersLocked() {
	s.gen++
	if s.periodic != nil {
		s.periodic.Stop()
		s.periodic = nil
	}
	if s.oneShot != nil {
		s.oneShot.Stop()
		s.oneShot = nil
	}
}

func (s *Supervisor) fire(gen uint64, trigger string) {
	s.mu.Lock()
	if gen != s.gen || s.closed || !s.running {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	s.mu.Unlock()

	if err := s.refresh(trigger, epoch); err != nil && !errors.Is(err, errStaleRefresh) {
		s.logger.Debug("scheduled refresh ended session", "trigger", trigger, "error", err)
	}
}

// ManualRefresh refreshes now through the same path as the timers.
func (s *Supervisor) ManualRefresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || !s.running {
		s.mu.Unlock()
		return ErrSupervisorIdle
	}
	epoch := s.epoch
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.refresh(TriggerManual, epoch) }()
	select {
	case err := <-done:
		if errors.Is(err, errStaleRefresh) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh performs one coalesced refresh. Concurrent triggers for the same
// session epoch share one call and its outcome.
func (s *Supervisor) refresh(trigger string, epoch uint64) error {
	key := "refresh:" + strconv.FormatUint(epoch, 10)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return nil, s.refreshOnce(trigger, epoch)
	})
	res := <-ch
	if res.Shared {
		metrics.EmitAuth(s.metrics, metrics.AuthMetric{
			Operation: metrics.OpRefresh,
			Result:    metrics.ResultNoop,
			Trigger:   trigger,
			Shared:    true,
		})
	}
	return res.Err
}

func (s *Supervisor) refreshOnce(trigger string, epoch uint64) error {
	start := s.clock.Now()
	res, err := s.gateway.Refresh(s.ctx)
	m := metrics.AuthMetric{
		Operation: metrics.OpRefresh,
		Result:    resultOf(err),
		Trigger:   trigger,
		Duration:  elapsed(s.clock, start),
		Err:       err,
	}
	metrics.EmitAuth(s.metrics, m)

	if err != nil {
		if s.isClosed() {
			return err
		}
		s.logger.Info("session refresh failed, signing out",
			"trigger", trigger,
			"code", apperrors.GetCode(err),
			"error", err)
		s.auth.forceLogoutAt(s.ctx, epoch)
		return err
	}

	if !s.auth.CommitRefresh(epoch, res) {
		return errStaleRefresh
	}

	s.mu.Lock()
	if s.epoch == epoch && s.running {
		s.scheduleLocked(true)
	}
	s.mu.Unlock()

	s.logger.Debug("session refreshed", "trigger", trigger)
	return nil
}

// SetVisible couples timers to presence: hidden cancels every timer; visible
// reschedules from the current expiry while authenticated.
func (s *Supervisor) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.visible == visible {
		return
	}
	s.visible = visible
	if !visible {
		s.cancelTimersLocked()
		return
	}
	s.scheduleLocked(false)
}

// Close stops supervising. No timer callback runs after Close returns.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.running = false
	s.cancelTimersLocked()
	s.mu.Unlock()

	s.unsubscribe()
	s.cancel()
}

func (s *Supervisor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Status reports what the supervisor is doing.
type Status struct {
	Running     bool `json:"running"`
	Visible     bool `json:"visible"`
	Periodic    bool `json:"periodicScheduled"`
	ExpiryTimer bool `json:"expiryScheduled"`
}

// Status returns a snapshot of the supervisor's timers.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:     s.running,
		Visible:     s.visible,
		Periodic:    s.periodic != nil,
		ExpiryTimer: s.oneShot != nil,
	}
}
