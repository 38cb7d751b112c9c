package httpx

import (
	"context"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
)

// stateKey is an unexported context key type to avoid collisions across packages.
type stateKey struct{}

// SetStateInContext returns a child context carrying the auth state the guard admitted.
func SetStateInContext(ctx context.Context, st domainauth.State) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// GetStateFromContext returns the admitted auth state and whether one is present.
func GetStateFromContext(ctx context.Context) (domainauth.State, bool) {
	st, ok := ctx.Value(stateKey{}).(domainauth.State)
	return st, ok
}

// CurrentUser returns the admitted user, or nil outside a guarded route.
func CurrentUser(ctx context.Context) *domainauth.User {
	st, ok := GetStateFromContext(ctx)
	if !ok {
		return nil
	}
	return st.User
}
