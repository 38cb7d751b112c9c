package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	"github.com/target/helpdesk-portal/internal/domain/nav"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/service"
)

// AuthController is the auth state machine as seen by the HTTP layer.
type AuthController interface {
	RouteGuard
	Login(ctx context.Context, username, password string) service.LoginOutcome
	Logout(ctx context.Context)
	ClearError()
	UpdateUser(user domainauth.User) error
}

// SessionSupervisor is the refresh supervisor as seen by the HTTP layer.
type SessionSupervisor interface {
	ManualRefresh(ctx context.Context) error
	SetVisible(visible bool)
	Status() service.Status
}

// SessionExpiry reports when the held session expires.
type SessionExpiry interface {
	ExpiresAt() (time.Time, bool)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Auth       AuthController
	Supervisor SessionSupervisor // optional
	Expiry     SessionExpiry     // optional
	Policy     *nav.Policy
	Renderer   *TemplateRenderer
	Logger     *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) policy() *nav.Policy {
	if h.Policy != nil {
		return h.Policy
	}
	return nav.Default()
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginPage renders the sign-in form.
// GET /login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirect := postLoginTarget(r.URL.Query().Get("redirect_uri"))
	st := h.Auth.State()
	if st.IsAuthenticated {
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}
	if h.Renderer == nil {
		http.Error(w, "login page unavailable", http.StatusInternalServerError)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, PageLogin, PageData{
		Title:       "Sign in",
		CurrentPath: LoginPath,
		Error:       st.Error,
		Notice:      st.Notice,
		Redirect:    redirect,
	})
}

// Login signs in with a username and password.
// POST /api/auth/login {username, password} → {success, error?}.
// Plain form posts are redirected instead: on to redirect_uri, or back to /login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if isFormRequest(r) {
		h.loginForm(w, r)
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	out := h.Auth.Login(r.Context(), req.Username, req.Password)
	WriteJSON(w, http.StatusOK, out)
}

func (h *AuthHandlers) loginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_form", Err: err})
		return
	}
	redirect := postLoginTarget(r.PostFormValue("redirect_uri"))
	out := h.Auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if !out.Success {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// Logout signs out. Always succeeds locally.
// POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Auth.Logout(r.Context())
	if isFormRequest(r) {
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stateResponse struct {
	domainauth.State
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Supervisor *service.Status `json:"supervisor,omitempty"`
}

// State returns the current AuthState.
// GET /api/auth/state.
func (h *AuthHandlers) State(w http.ResponseWriter, _ *http.Request) {
	resp := stateResponse{State: h.Auth.State()}
	if resp.IsAuthenticated && h.Expiry != nil {
		if exp, ok := h.Expiry.ExpiresAt(); ok {
			resp.ExpiresAt = &exp
		}
	}
	if h.Supervisor != nil {
		st := h.Supervisor.Status()
		resp.Supervisor = &st
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ClearError drops the visible login error; the form calls it when a field is edited.
// POST /api/auth/clear-error.
func (h *AuthHandlers) ClearError(w http.ResponseWriter, _ *http.Request) {
	h.Auth.ClearError()
	w.WriteHeader(http.StatusNoContent)
}

// UpdateUser replaces the signed-in user's profile fields.
// PUT /api/auth/user.
func (h *AuthHandlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var user domainauth.User
	if !DecodeJSON(w, r, &user) {
		return
	}
	user.ID = strings.TrimSpace(user.ID)
	if err := h.Auth.UpdateUser(user); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.Auth.State().User)
}

// Refresh refreshes the session now.
// POST /api/auth/refresh.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.Supervisor == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "refresh_unavailable",
			Err:     errors.New("session refresh is not enabled"),
		})
		return
	}
	err := h.Supervisor.ManualRefresh(r.Context())
	switch {
	case err == nil:
		h.State(w, r)
	case errors.Is(err, service.ErrSupervisorIdle):
		WriteAppError(w, apperrors.NotAuthenticated(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteAppError(w, apperrors.ServerUnavailable(apperrors.MsgCannotConnect, err))
	default:
		h.logger().InfoContext(r.Context(), "manual refresh failed", "error", err)
		WriteAppError(w, err)
	}
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// Visibility reports document visibility so refresh timers pause while the page is hidden.
// POST /api/session/visibility {visible}.
func (h *AuthHandlers) Visibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Visible == nil {
		WriteAppError(w, apperrors.ValidationField("visible", "visible is required."))
		return
	}
	if h.Supervisor == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.Supervisor.SetVisible(*req.Visible)
	WriteJSON(w, http.StatusOK, h.Supervisor.Status())
}

type navResponse struct {
	Role  domainauth.Role `json:"role"`
	Items []nav.MenuItem  `json:"items"`
}

// Nav returns the menu for the signed-in user's role.
// GET /api/nav.
func (h *AuthHandlers) Nav(w http.ResponseWriter, _ *http.Request) {
	st := h.Auth.State()
	if !st.IsAuthenticated {
		WriteAppError(w, apperrors.NotAuthenticated(nil))
		return
	}
	WriteJSON(w, http.StatusOK, navResponse{Role: st.Role(), Items: h.policy().MenuFor(st.Role())})
}

// Section renders a guarded page. RequireRoute has already admitted the request.
func (h *AuthHandlers) Section(w http.ResponseWriter, r *http.Request) {
	st, _ := GetStateFromContext(r.Context())
	section := sectionFor(h.policy(), r.URL.Path)
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]any{"section": section, "user": st.User})
		return
	}
	if h.Renderer == nil {
		writeText(w, http.StatusOK, SectionTitle(section))
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, PageSection, PageData{
		Title:       SectionTitle(section),
		CurrentPath: section,
		User:        st.User,
		Menu:        h.policy().MenuFor(st.Role()),
	})
}

func sectionFor(policy *nav.Policy, urlPath string) string {
	for _, s := range policy.Sections() {
		if urlPath == s || strings.HasPrefix(urlPath, s+"/") {
			return s
		}
	}
	return urlPath
}

// postLoginTarget sanitizes a redirect_uri, defaulting to the dashboard.
func postLoginTarget(raw string) string {
	target := safeRedirectPath(raw)
	if target == "/" || strings.HasPrefix(target, LoginPath) {
		return HomePath
	}
	return target
}
