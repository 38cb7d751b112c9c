// Package memstore provides the volatile in-process Session Store.
// Credentials live only in memory and are lost on restart.
package memstore

import (
	"sync"
	"time"

	"github.com/target/helpdesk-portal/internal/clock"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/ports"
)

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStore holds at most one session.
type SessionStore struct {
	mu    sync.RWMutex
	clock clock.Clock
	sess  *domainauth.Session
}

// NewSessionStore creates an empty store. A nil clock uses the system clock.
func NewSessionStore(c clock.Clock) *SessionStore {
	if c == nil {
		c = clock.Real{}
	}
	return &SessionStore{clock: c}
}

// SetSession replaces any held session. expiresAt is computed from the store's clock.
func (s *SessionStore) SetSession(token, refreshToken string, expiresIn time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = &domainauth.Session{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    s.clock.Now().Add(expiresIn),
	}
}

// Token returns the held token. It fails with NotAuthenticated when empty and
// SessionExpired once now >= expiresAt.
func (s *SessionStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil || s.sess.Token == "" {
		return "", apperrors.NotAuthenticated(nil)
	}
	if s.sess.Expired(s.clock.Now()) {
		return "", apperrors.SessionExpired()
	}
	return s.sess.Token, nil
}

// RefreshToken returns the held refresh token, or "".
func (s *SessionStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return ""
	}
	return s.sess.RefreshToken
}

// ExpiresAt returns the held session's expiry.
func (s *SessionStore) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return time.Time{}, false
	}
	return s.sess.ExpiresAt, true
}

// IsExpiringSoon reports now >= expiresAt - lookahead; true when no session is held.
func (s *SessionStore) IsExpiringSoon(lookahead time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return true
	}
	return s.sess.ExpiringWithin(s.clock.Now(), lookahead)
}

// Snapshot returns a copy of the held session.
func (s *SessionStore) Snapshot() (domainauth.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return domainauth.Session{}, false
	}
	return *s.sess, true
}

// Clear drops the held session. Safe to call repeatedly.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = nil
}
