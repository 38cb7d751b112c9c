// Package apiclient implements the Auth Gateway against the help-desk REST API.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/sony/gobreaker"
	"github.com/target/helpdesk-portal/internal/clock"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/ports"
)

var _ ports.AuthGateway = (*Gateway)(nil)

// API endpoints, relative to the base URL.
const (
	endpointLogin   = "auth/login"
	endpointMe      = "auth/me"
	endpointLogout  = "auth/logout"
	endpointRefresh = "auth/refresh"
)

// Config captures how the gateway reaches the API.
type Config struct {
	BaseURL string
	// Timeout bounds every call.
	Timeout time.Duration
	// UserPath is a JMESPath expression locating the user object in login and me responses.
	UserPath string
	// DefaultTTL is used when neither the response nor the token carries a lifetime.
	DefaultTTL time.Duration
	// BreakerFailures is the number of consecutive transport failures that opens the breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
	// Client overrides the HTTP client (its Jar is replaced).
	Client *http.Client
}

// Options groups dependencies for Gateway.
type Options struct {
	Config Config
	Store  ports.SessionStore
	Clock  clock.Clock
	Logger *slog.Logger
}

// Gateway talks to the help-desk API and keeps credential transport in one place:
// a bearer token from the Session Store plus an in-memory cookie jar.
type Gateway struct {
	baseURL    *url.URL
	client     *http.Client
	jar        *sessionJar
	store      ports.SessionStore
	breaker    *gobreaker.CircuitBreaker
	userPath   string
	timeout    time.Duration
	defaultTTL time.Duration
	clock      clock.Clock
	logger     *slog.Logger
}

// NewGateway validates cfg and builds a Gateway.
func NewGateway(opts Options) (*Gateway, error) {
	cfg := opts.Config
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}

	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	userPath := strings.TrimSpace(cfg.UserPath)
	if userPath == "" {
		userPath = "user"
	}
	if _, compileErr := jmespath.Compile(userPath); compileErr != nil {
		return nil, fmt.Errorf("invalid user path %q: %w", userPath, compileErr)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: timeout}
	if cfg.Client != nil {
		cp := *cfg.Client
		hc = &cp
	}
	hc.Jar = jar

	c := opts.Clock
	if c == nil {
		c = clock.Real{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth_gateway")

	return &Gateway{
		baseURL:    base,
		client:     hc,
		jar:        jar,
		store:      opts.Store,
		breaker:    newBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, logger),
		userPath:   userPath,
		timeout:    timeout,
		defaultTTL: ttl,
		clock:      c,
		logger:     logger,
	}, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login checks credentials client-side and exchanges them for a session.
// The result is not committed to the Session Store.
func (g *Gateway) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	resp, err := g.send(ctx, http.MethodPost, endpointLogin, credentials{Username: username, Password: password}, "")
	if err != nil {
		return nil, err
	}

	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return nil, apperrors.InvalidCredentials(fmt.Errorf("login rejected: status %d", resp.status))
	case resp.status >= 400:
		msg := serverMessage(resp.body)
		if msg == "" {
			msg = apperrors.MsgLoginFailed
		}
		return nil, apperrors.Validation(msg)
	}

	tokens, doc, err := decodeBody(resp.body)
	if err != nil {
		return nil, apperrors.ServerUnavailable(apperrors.MsgServerError, fmt.Errorf("decode login response: %w", err))
	}
	user, err := g.extractUser(doc)
	if err != nil {
		return nil, apperrors.ServerUnavailable(apperrors.MsgServerError, fmt.Errorf("login response: %w", err))
	}

	return &ports.LoginResult{
		User:         user,
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    g.lifetime(tokens),
	}, nil
}

func validateCredentials(username, password string) error {
	switch {
	case username == "" && password == "":
		return apperrors.Validation(apperrors.MsgCredentialsRequired)
	case username == "":
		return apperrors.ValidationField("username", apperrors.MsgUsernameRequired)
	case password == "":
		return apperrors.ValidationField("password", apperrors.MsgPasswordRequired)
	}
	return nil
}

// FetchCurrentUser asks the API who holds the current credential.
func (g *Gateway) FetchCurrentUser(ctx context.Context) (domainauth.User, error) {
	bearer, err := g.store.Token()
	if err != nil && (apperrors.IsSessionExpired(err) || !g.jar.HasCookies(g.baseURL)) {
		return domainauth.User{}, apperrors.NotAuthenticated(err)
	}

	resp, err := g.send(ctx, http.MethodGet, endpointMe, nil, bearer)
	if err != nil {
		return domainauth.User{}, err
	}
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		return domainauth.User{}, apperrors.NotAuthenticated(fmt.Errorf("who-am-i rejected: status %d", resp.status))
	case resp.status == http.StatusRequestTimeout:
		return domainauth.User{}, apperrors.ServerUnavailable(apperrors.MsgCannotConnect, fmt.Errorf("who-am-i timed out: status %d", resp.status))
	case resp.status >= 400:
		// Throttling or an unexpected status says nothing about the credential.
		return domainauth.User{}, apperrors.ServerUnavailable(apperrors.MsgServerError, fmt.Errorf("who-am-i failed: status %d", resp.status))
	}

	_, doc, err := decodeBody(resp.body)
	if err != nil {
		return domainauth.User{}, apperrors.NotAuthenticated(fmt.Errorf("decode who-am-i response: %w", err))
	}
	user, err := g.extractUser(doc)
	if err != nil {
		return domainauth.User{}, apperrors.NotAuthenticated(err)
	}
	if !user.IsActive {
		return domainauth.User{}, apperrors.NotAuthenticated(fmt.Errorf("account %s is inactive", user.ID))
	}
	return user, nil
}

// Logout notifies the API when a credential is held. Failures are logged and
// ignored; local credentials are always cleared last.
func (g *Gateway) Logout(ctx context.Context) {
	defer g.ClearCredentials()

	bearer, err := g.store.Token()
	if err != nil && !g.jar.HasCookies(g.baseURL) {
		return
	}

	resp, err := g.send(ctx, http.MethodPost, endpointLogout, nil, bearer)
	if err != nil {
		g.logger.WarnContext(ctx, "server logout failed", "error", err)
		return
	}
	if resp.status >= 400 {
		g.logger.WarnContext(ctx, "server logout rejected", "status", resp.status)
	}
}

// ClearCredentials drops the held session and every cookie in the jar.
func (g *Gateway) ClearCredentials() {
	g.store.Clear()
	g.jar.Reset()
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Refresh exchanges the held refresh credential for new credentials. The
// result is returned for the caller to commit.
func (g *Gateway) Refresh(ctx context.Context) (*ports.RefreshResult, error) {
	bearer, _ := g.store.Token()
	refreshToken := g.store.RefreshToken()

	resp, err := g.send(ctx, http.MethodPost, endpointRefresh, refreshRequest{RefreshToken: refreshToken}, bearer)
	if err != nil {
		return nil, err
	}
	if resp.status >= 400 {
		return nil, apperrors.RefreshFailed(fmt.Errorf("refresh rejected: status %d", resp.status))
	}

	tokens, _, err := decodeBody(resp.body)
	if err != nil {
		return nil, apperrors.RefreshFailed(fmt.Errorf("decode refresh response: %w", err))
	}
	if tokens.Token == "" {
		return nil, apperrors.RefreshFailed(errors.New("refresh response has no token"))
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	return &ports.RefreshResult{
		Token:        tokens.Token,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    g.lifetime(tokens),
	}, nil
}

// lifetime picks the session lifetime: explicit seconds, then the token's exp claim, then the default.
func (g *Gateway) lifetime(t tokenPayload) time.Duration {
	if d := t.expiresIn(); d > 0 {
		return d
	}
	if d, ok := jwtLifetime(t.Token, g.clock.Now()); ok {
		return d
	}
	return g.defaultTTL
}
