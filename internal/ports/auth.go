// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"time"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
)

// LoginResult is a successful login, returned uncommitted. The caller writes
// it to the SessionStore.
type LoginResult struct {
	User         domainauth.User
	Token        string
	RefreshToken string
	ExpiresIn    time.Duration
}

// RefreshResult carries credentials issued by a refresh call.
type RefreshResult struct {
	Token        string
	RefreshToken string
	ExpiresIn    time.Duration
}

// AuthGateway performs authentication calls against the help-desk API.
// Errors are *errors.AppError values carrying a user-facing message.
type AuthGateway interface {
	// Login validates credentials client-side and then exchanges them for a session.
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// FetchCurrentUser asks the API who the held credential belongs to.
	FetchCurrentUser(ctx context.Context) (domainauth.User, error)

	// Logout notifies the API best-effort and always clears local credentials.
	Logout(ctx context.Context)

	// Refresh exchanges the held refresh credential for new credentials.
	Refresh(ctx context.Context) (*RefreshResult, error)

	// ClearCredentials drops every local credential (token and cookies)
	// without calling the API.
	ClearCredentials()
}

// SessionStore holds the process's credential in memory.
type SessionStore interface {
	SetSession(token, refreshToken string, expiresIn time.Duration)
	// Token returns the held token, or a NotAuthenticated/SessionExpired error.
	Token() (string, error)
	RefreshToken() string
	// ExpiresAt reports the expiry of the held session; ok is false when none is held.
	ExpiresAt() (t time.Time, ok bool)
	// IsExpiringSoon reports whether now is within lookahead of expiry. True when no session is held.
	IsExpiringSoon(lookahead time.Duration) bool
	Snapshot() (domainauth.Session, bool)
	Clear()
}

// SessionEventType names a cross-instance session event.
type SessionEventType string

const (
	// SessionEventLogout is published when a user signs out.
	SessionEventLogout SessionEventType = "logout"
)

// SessionEvent is a session change observed on another portal instance.
// It never carries credentials.
type SessionEvent struct {
	Type   SessionEventType `json:"type"`
	UserID string           `json:"userId"`
	Origin string           `json:"origin"`
	At     time.Time        `json:"at"`
}

// SessionEvents broadcasts session changes between portal instances.
type SessionEvents interface {
	PublishLogout(ctx context.Context, userID string) error
	// Listen blocks delivering remote events to handler until ctx is done.
	Listen(ctx context.Context, handler func(SessionEvent)) error
}
