package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	helpdeskportal "github.com/target/helpdesk-portal"
	"github.com/target/helpdesk-portal/internal/domain/nav"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth       AuthController
	Supervisor SessionSupervisor // optional
	Expiry     SessionExpiry     // optional
	Policy     *nav.Policy       // defaults to nav.Default()
	// Renderer overrides template loading; tests use it.
	Renderer     *TemplateRenderer
	SecureCookie bool
	IsDev        bool
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router with browser detection and
// CSRF protection applied.
func NewRouter(services RouterServices) (http.Handler, error) {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := services.Policy
	if policy == nil {
		policy = nav.Default()
	}

	renderer := services.Renderer
	if renderer == nil {
		var err error
		renderer, err = newRenderer(services.IsDev, logger)
		if err != nil {
			return nil, err
		}
	}

	h := &AuthHandlers{
		Auth:       services.Auth,
		Supervisor: services.Supervisor,
		Expiry:     services.Expiry,
		Policy:     policy,
		Renderer:   renderer,
		Logger:     logger,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthHandler(services.Auth))

	registerAuthRoutes(mux, h)
	registerPageRoutes(mux, h, RouteGuardOptions{
		Auth:     services.Auth,
		Policy:   policy,
		Renderer: renderer,
		Logger:   logger,
	})

	handler := CSRFProtection(CSRFConfig{Secure: services.SecureCookie})(mux)
	return BrowserDetection()(handler), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/state", h.State)
	mux.HandleFunc("POST /api/auth/clear-error", h.ClearError)
	mux.HandleFunc("PUT /api/auth/user", h.UpdateUser)
	mux.HandleFunc("POST /api/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/session/visibility", h.Visibility)
	mux.HandleFunc("GET /api/nav", h.Nav)
}

// registerPageRoutes guards every section and everything below it.
func registerPageRoutes(mux *http.ServeMux, h *AuthHandlers, opts RouteGuardOptions) {
	guarded := RequireRoute(opts)(http.HandlerFunc(h.Section))
	for _, section := range opts.Policy.Sections() {
		mux.Handle("GET "+section, guarded)
		mux.Handle("GET "+section+"/", guarded)
	}
	mux.Handle("GET /{$}", http.RedirectHandler(HomePath, http.StatusSeeOther))
}

// newRenderer loads templates from disk in dev mode and from the embedded FS otherwise.
func newRenderer(isDev bool, logger *slog.Logger) (*TemplateRenderer, error) {
	var templateFS fs.FS
	if isDev {
		templateFS = os.DirFS(TemplatePathFromRoot)
	} else {
		sub, err := fs.Sub(helpdeskportal.TemplateFS, TemplatePathFromRoot)
		if err != nil {
			return nil, err
		}
		templateFS = sub
	}
	return NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: templateFS,
		DevMode:    isDev,
		Logger:     logger,
	})
}
