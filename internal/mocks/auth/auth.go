// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthGateway   = (*FakeGateway)(nil)
	_ ports.SessionEvents = (*MemorySessionEvents)(nil)
)

// Account is a user known to FakeGateway.
type Account struct {
	Password string
	User     domainauth.User
}

// FakeGateway simulates the help-desk API. Func fields override the default
// behavior; call counters are safe for concurrent use.
type FakeGateway struct {
	LoginFunc   func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	FetchFunc   func(ctx context.Context) (domainauth.User, error)
	RefreshFunc func(ctx context.Context) (*ports.RefreshResult, error)

	// Store is cleared by Logout, like the real gateway. Optional.
	Store ports.SessionStore
	// Accounts backs the default Login.
	Accounts map[string]Account
	// CurrentUser is returned by the default FetchCurrentUser while Store holds a valid token.
	CurrentUser *domainauth.User
	// TTL is the lifetime handed out by default Login and Refresh.
	TTL time.Duration

	mu      sync.Mutex
	calls   map[string]int
	counter int
}

// NewFakeGateway creates a FakeGateway with the given accounts.
func NewFakeGateway(store ports.SessionStore, accounts ...Account) *FakeGateway {
	g := &FakeGateway{Store: store, Accounts: make(map[string]Account, len(accounts)), TTL: time.Hour}
	for _, a := range accounts {
		g.Accounts[a.User.Username] = a
	}
	return g
}

func (g *FakeGateway) record(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[method]++
	g.counter++
	return g.counter
}

// Calls returns how many times method was invoked.
func (g *FakeGateway) Calls(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *FakeGateway) ttl() time.Duration {
	if g.TTL <= 0 {
		return time.Hour
	}
	return g.TTL
}

func (g *FakeGateway) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	n := g.record("Login")
	if g.LoginFunc != nil {
		return g.LoginFunc(ctx, username, password)
	}

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.Validation(apperrors.MsgCredentialsRequired)
	}
	acct, ok := g.Accounts[username]
	if !ok || acct.Password != password {
		return nil, apperrors.InvalidCredentials(fmt.Errorf("fake: bad credentials for %s", username))
	}

	g.mu.Lock()
	u := acct.User
	g.CurrentUser = &u
	g.mu.Unlock()

	return &ports.LoginResult{
		User:         acct.User,
		Token:        fmt.Sprintf("fake-token-%d", n),
		RefreshToken: fmt.Sprintf("fake-refresh-%d", n),
		ExpiresIn:    g.ttl(),
	}, nil
}

func (g *FakeGateway) FetchCurrentUser(ctx context.Context) (domainauth.User, error) {
	g.record("FetchCurrentUser")
	if g.FetchFunc != nil {
		return g.FetchFunc(ctx)
	}
	if g.Store == nil {
		return domainauth.User{}, apperrors.NotAuthenticated(nil)
	}
	if _, err := g.Store.Token(); err != nil {
		return domainauth.User{}, apperrors.NotAuthenticated(err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CurrentUser == nil {
		return domainauth.User{}, apperrors.NotAuthenticated(nil)
	}
	return *g.CurrentUser, nil
}

func (g *FakeGateway) Logout(_ context.Context) {
	g.record("Logout")
	g.mu.Lock()
	g.CurrentUser = nil
	g.mu.Unlock()
	if g.Store != nil {
		g.Store.Clear()
	}
}

// ClearCredentials clears Store and forgets the current user. It is counted
// but does not advance the token sequence.
func (g *FakeGateway) ClearCredentials() {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls["ClearCredentials"]++
	g.CurrentUser = nil
	g.mu.Unlock()
	if g.Store != nil {
		g.Store.Clear()
	}
}

func (g *FakeGateway) Refresh(ctx context.Context) (*ports.RefreshResult, error) {
	n := g.record("Refresh")
	if g.RefreshFunc != nil {
		return g.RefreshFunc(ctx)
	}
	return &ports.RefreshResult{
		Token:        fmt.Sprintf("fake-token-%d", n),
		RefreshToken: fmt.Sprintf("fake-refresh-%d", n),
		ExpiresIn:    g.ttl(),
	}, nil
}

// MemorySessionEvents is an in-process SessionEvents. Published events are
// recorded; Deliver injects a remote event into active listeners.
type MemorySessionEvents struct {
	Origin string

	mu        sync.Mutex
	published []ports.SessionEvent
	ch        chan ports.SessionEvent
	now       func() time.Time
}

// NewMemorySessionEvents creates an event bus double.
func NewMemorySessionEvents(origin string) *MemorySessionEvents {
	return &MemorySessionEvents{
		Origin: origin,
		ch:     make(chan ports.SessionEvent, 16),
		now:    time.Now,
	}
}

func (m *MemorySessionEvents) PublishLogout(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, ports.SessionEvent{
		Type:   ports.SessionEventLogout,
		UserID: userID,
		Origin: m.Origin,
		At:     m.now(),
	})
	return nil
}

// Published returns a copy of every event published so far.
func (m *MemorySessionEvents) Published() []ports.SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.SessionEvent, len(m.published))
	copy(out, m.published)
	return out
}

// Deliver queues evt for the active listener.
func (m *MemorySessionEvents) Deliver(evt ports.SessionEvent) {
	m.ch <- evt
}

func (m *MemorySessionEvents) Listen(ctx context.Context, handler func(ports.SessionEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-m.ch:
			if evt.Origin == m.Origin {
				continue
			}
			handler(evt)
		}
	}
}
