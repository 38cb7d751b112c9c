package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	"github.com/target/helpdesk-portal/internal/domain/guard"
	"github.com/target/helpdesk-portal/internal/domain/nav"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Logging writes one access line per request. 5xx responses log at error
// level and 4xx at warn so failed sign-ins stand out from page traffic.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch status := rec.statusCode(); {
			case status >= http.StatusInternalServerError:
				level = slog.LevelError
			case status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http",
				slog.String("request_id", w.Header().Get(RequestIDHeader)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode()),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusRecorder remembers the status and body size written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Recover turns a handler panic into a 500 and logs the stack with the
// request id. Browsers get plain text, API callers the JSON error envelope.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				logger.ErrorContext(r.Context(), "handler panic",
					"request_id", w.Header().Get(RequestIDHeader),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()))
				if IsBrowserRequest(r) {
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "internal_error",
					Err:     errors.New("internal server error"),
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID echoes a caller-supplied X-Request-ID or assigns a new one.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r)
		})
	}
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection returns a middleware that detects browser requests vs API requests.
// Downstream handlers use it to choose between HTML and JSON responses.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	return isBrowserRequest(r)
}

// isBrowserRequest treats /api/ routes as API calls and everything else by its
// Accept header; a missing Accept header counts as a browser.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html")
}

// StateReader exposes the current authentication state.
type StateReader interface {
	State() domainauth.State
}

// RouteGuard is what RequireRoute needs from the auth state machine.
type RouteGuard interface {
	StateReader
	Revalidate(ctx context.Context) error
}

// RouteGuardOptions configures RequireRoute.
type RouteGuardOptions struct {
	Auth     RouteGuard
	Policy   *nav.Policy
	Renderer *TemplateRenderer // optional; plain text is written without it
	Logger   *slog.Logger
}

// RequireRoute guards a page. Every navigation re-checks the session with the
// API, then applies the guard decision for the request path:
//   - loading: an auto-refreshing loading page, never a redirect
//   - signed out: 303 to /login for browsers, 401 JSON otherwise
//   - wrong role: 403 access-denied page or JSON naming the required roles
//   - otherwise the page, with the admitted state in the request context
func RequireRoute(opts RouteGuardOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = nav.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := opts.Auth.Revalidate(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "route revalidation failed", "path", r.URL.Path, "error", err)
			}

			st := opts.Auth.State()
			d := guard.EvaluatePath(st, policy, r.URL.Path)

			switch d.Outcome {
			case guard.OutcomeLoading:
				writeLoading(w, r, opts.Renderer)
			case guard.OutcomeRedirectLogin:
				if IsBrowserRequest(r) {
					redirectToLogin(w, r)
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
			case guard.OutcomeAccessDenied:
				logger.InfoContext(r.Context(), "access denied",
					"path", r.URL.Path,
					"role", st.Role(),
					"required", d.Required.String())
				writeDenied(w, r, opts.Renderer, policy, st, d)
			default:
				next.ServeHTTP(w, r.WithContext(SetStateInContext(r.Context(), st)))
			}
		})
	}
}

func writeLoading(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer) {
	if !IsBrowserRequest(r) {
		w.Header().Set("Retry-After", "1")
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "loading",
			Err:     errors.New("session check in progress"),
		})
		return
	}
	if renderer == nil {
		w.Header().Set("Refresh", "1")
		writeText(w, http.StatusOK, "Loading…")
		return
	}
	renderer.Render(w, r, http.StatusOK, PageLoading, PageData{
		Title:       "Loading",
		CurrentPath: r.URL.Path,
		AutoRefresh: loadingRefreshSeconds,
	})
}

func writeDenied(w http.ResponseWriter, r *http.Request, renderer *TemplateRenderer, policy *nav.Policy, st domainauth.State, d guard.Decision) {
	msg := d.DeniedMessage()
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusForbidden, map[string]any{
			"error":         "insufficient_permissions",
			"message":       msg,
			"requiredRoles": d.Required.Roles(),
		})
		return
	}
	if renderer == nil {
		http.Error(w, msg, http.StatusForbidden)
		return
	}
	renderer.Render(w, r, http.StatusForbidden, PageDenied, PageData{
		Title:       "Access Denied",
		CurrentPath: r.URL.Path,
		User:        st.User,
		Menu:        policy.MenuFor(st.Role()),
		Message:     msg,
	})
}

// redirectToLogin sends the browser to the login page, remembering where it was going.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginPath
	if back := safeRedirectPath(r.URL.RequestURI()); back != "/" && back != HomePath {
		target += "?redirect_uri=" + url.QueryEscape(back)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeRedirectPath allows only same-origin relative paths; anything else becomes "/".
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	if strings.HasPrefix(candidate, "//") || strings.HasPrefix(candidate, `/\`) {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
