// Package guard decides what a protected view shows for a given auth state.
// Decisions are pure functions of their inputs.
package guard

import (
	"fmt"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	"github.com/target/helpdesk-portal/internal/domain/nav"
)

// Outcome is what the caller must do with a protected view.
type Outcome int

const (
	// OutcomeLoading shows a neutral loading indicator; no redirect yet.
	OutcomeLoading Outcome = iota
	// OutcomeRedirectLogin sends the visitor to the login entry point, replacing history.
	OutcomeRedirectLogin
	// OutcomeRender shows the protected view.
	OutcomeRender
	// OutcomeAccessDenied shows the access-denied view naming Required.
	OutcomeAccessDenied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRedirectLogin:
		return "redirect_login"
	case OutcomeRender:
		return "render"
	case OutcomeAccessDenied:
		return "access_denied"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the guard's verdict.
type Decision struct {
	Outcome  Outcome
	Required domainauth.RoleSet
}

// DeniedMessage renders the access-denied text for d. Empty unless d denies access.
func (d Decision) DeniedMessage() string {
	if d.Outcome != OutcomeAccessDenied {
		return ""
	}
	if d.Required.IsEmpty() {
		return "You don't have permission to access this page."
	}
	return fmt.Sprintf("This page requires %s privileges. You don't have permission to access this page.", d.Required)
}

// Evaluate applies the role gate. An empty required set admits any authenticated role.
func Evaluate(state domainauth.State, required domainauth.RoleSet) Decision {
	if d, done := preflight(state); done {
		return d
	}
	if required.IsEmpty() || required.Contains(state.Role()) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{Outcome: OutcomeAccessDenied, Required: required}
}

// EvaluatePath applies the navigation policy as the authority for urlPath.
func EvaluatePath(state domainauth.State, policy *nav.Policy, urlPath string) Decision {
	if d, done := preflight(state); done {
		return d
	}
	if policy.IsPathPermitted(state.Role(), urlPath) {
		return Decision{Outcome: OutcomeRender}
	}
	return Decision{Outcome: OutcomeAccessDenied, Required: policy.RequiredRoles(urlPath)}
}

// preflight handles loading and signed-out states, which never depend on roles.
func preflight(state domainauth.State) (Decision, bool) {
	if state.Loading {
		return Decision{Outcome: OutcomeLoading}, true
	}
	if !state.IsAuthenticated || state.User == nil {
		return Decision{Outcome: OutcomeRedirectLogin}, true
	}
	return Decision{}, false
}
