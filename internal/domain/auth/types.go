// Package auth contains domain-level types for authentication, roles and session state.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form so it matches the API payloads.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleEmployee   Role = "EMPLOYEE"
)

// AllRoles lists the known roles from most to least privileged.
var AllRoles = []Role{RoleAdmin, RoleTechnician, RoleEmployee}

// ParseRole parses a role name case-insensitively.
// ok is false when the value is not one of the known roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if r.Valid() {
		return r, true
	}
	return "", false
}

// NormalizeRole parses s and degrades unknown values to RoleEmployee.
func NormalizeRole(s string) Role {
	if r, ok := ParseRole(s); ok {
		return r
	}
	return RoleEmployee
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleEmployee:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "Administrator"
	case RoleTechnician:
		return "Technician"
	case RoleEmployee:
		return "Employee"
	case "":
		return "Unknown"
	default:
		return string(r)
	}
}

// User is the signed-in principal as reported by the help-desk API.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"fullName"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	Role        Role   `json:"role"`
	IsActive    bool   `json:"isActive"`
}

// Session is the credential material held in process memory.
type Session struct {
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ExpiringWithin reports whether now falls inside the lookahead window before expiry.
func (s Session) ExpiringWithin(now time.Time, lookahead time.Duration) bool {
	return !now.Before(s.ExpiresAt.Add(-lookahead))
}

// Phase is the Auth Context state machine position.
type Phase string

const (
	PhaseInitializing    Phase = "INITIALIZING"
	PhaseAuthenticated   Phase = "AUTHENTICATED"
	PhaseUnauthenticated Phase = "UNAUTHENTICATED"
)

// State is the process-wide authentication state read by the UI.
// IsAuthenticated is always equal to User != nil.
// An empty Error means no error is shown.
type State struct {
	Phase           Phase  `json:"phase"`
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error,omitempty"`
	Notice          string `json:"notice,omitempty"`
}

// Clone returns a copy of s that does not share the User pointer.
func (s State) Clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Role returns the current user's role, or "" when signed out.
func (s State) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}
