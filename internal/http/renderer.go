package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	"github.com/target/helpdesk-portal/internal/domain/nav"
)

// PageData is the view model shared by every page.
type PageData struct {
	Title       string
	CurrentPath string
	User        *domainauth.User
	Menu        []nav.MenuItem
	CSRFToken   string
	Error       string
	Notice      string
	Message     string
	Redirect    string
	AutoRefresh int
}

// TemplateRenderer renders HTML pages. Each page is the shared layout plus
// one content template.
type TemplateRenderer struct {
	fsys    fs.FS
	devMode bool
	logger  *slog.Logger

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // required
	DevMode    bool  // re-parse templates on every render
	Logger     *slog.Logger
}

var pageNames = []string{PageLogin, PageLoading, PageDenied, PageSection}

// NewTemplateRenderer parses every page up front so broken templates fail at startup.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tr := &TemplateRenderer{fsys: cfg.TemplateFS, devMode: cfg.DevMode, logger: logger}
	pages, err := tr.parse()
	if err != nil {
		return nil, err
	}
	tr.pages = pages
	return tr, nil
}

func (tr *TemplateRenderer) parse() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(tr.fsys, "layout.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (tr *TemplateRenderer) page(name string) (*template.Template, error) {
	if tr.devMode {
		pages, err := tr.parse()
		if err != nil {
			return nil, err
		}
		tr.mu.Lock()
		tr.pages = pages
		tr.mu.Unlock()
	}
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	t, ok := tr.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	return t, nil
}

// Render writes page with status. The CSRF token is filled in from the request.
func (tr *TemplateRenderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	t, err := tr.page(name)
	if err != nil {
		tr.fail(w, r, name, err)
		return
	}
	if data.CSRFToken == "" {
		data.CSRFToken = GetCSRFToken(r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		tr.fail(w, r, name, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

func (tr *TemplateRenderer) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	tr.logger.ErrorContext(r.Context(), "template render failed", "page", name, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// writeText is the fallback page body when no renderer is configured.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body+"\n")
}
