package apiclient

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/helpdesk-portal/internal/adapters/memstore"
	"github.com/target/helpdesk-portal/internal/clock"
	domainauth "github.com/target/helpdesk-portal/internal/domain/auth"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"github.com/target/helpdesk-portal/internal/testutil"
)

type fixture struct {
	gw    *Gateway
	store *memstore.SessionStore
	clock *clock.Fake
	srv   *httptest.Server
	calls *atomic.Int32
}

func newFixture(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *fixture {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := clock.NewFake(testutil.TestTime())
	store := memstore.NewSessionStore(c)
	cfg := Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	gw, err := NewGateway(Options{Config: cfg, Store: store, Clock: c})
	require.NoError(t, err)

	return &fixture{gw: gw, store: store, clock: c, srv: srv, calls: calls}
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewGateway_Validation(t *testing.T) {
	store := memstore.NewSessionStore(nil)

	_, err := NewGateway(Options{Config: Config{BaseURL: "http://api"}})
	require.Error(t, err)

	_, err = NewGateway(Options{Config: Config{BaseURL: "/relative"}, Store: store})
	require.Error(t, err)

	_, err = NewGateway(Options{Config: Config{BaseURL: "http://api", UserPath: "user[["}, Store: store})
	require.Error(t, err)
}

func TestLogin_ValidationSkipsNetwork(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name, username, password, want, field string
	}{
		{"both empty", "", "", apperrors.MsgCredentialsRequired, ""},
		{"blank username", "   ", "secret", apperrors.MsgUsernameRequired, "username"},
		{"empty password", "abenali", "", apperrors.MsgPasswordRequired, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gw.Login(context.Background(), tt.username, tt.password)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.want, apperrors.UserMessage(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
		})
	}
	assert.Zero(t, f.calls.Load())
}

func TestLogin_NestedPayload(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, credentials{Username: "abenali", Password: "correct"}, body)

		writeJSON(t, w, http.StatusOK, map[string]any{
			"token":            "tok-1",
			"refreshToken":     "ref-1",
			"expiresInSeconds": 3600,
			"user": map[string]any{
				"id":         "42",
				"username":   "abenali",
				"fullName":   "Amina Benali",
				"email":      "amina@example.com",
				"department": "IT",
				"role":       "TECHNICIAN",
			},
		})
	})

	res, err := f.gw.Login(context.Background(), " abenali ", "correct")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "ref-1", res.RefreshToken)
	assert.Equal(t, time.Hour, res.ExpiresIn)
	assert.Equal(t, domainauth.User{
		ID:          "42",
		Username:    "abenali",
		DisplayName: "Amina Benali",
		Email:       "amina@example.com",
		Department:  "IT",
		Role:        domainauth.RoleTechnician,
		IsActive:    true,
	}, res.User)

	_, held := f.store.Snapshot()
	assert.False(t, held, "login result must not be committed by the gateway")
}

func TestLogin_FlatPayloadWithJWTExpiry(t *testing.T) {
	now := testutil.TestTime()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "9",
		"exp": now.Add(2 * time.Hour).Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"userId":   9,
			"username": "jdoe",
			"fullName": "Jane Doe",
			"role":     "admin",
			"token":    token,
			"message":  "Login successful",
		})
	})

	res, err := f.gw.Login(context.Background(), "jdoe", "pw")
	require.NoError(t, err)
	assert.Equal(t, "9", res.User.ID)
	assert.Equal(t, domainauth.RoleAdmin, res.User.Role)
	assert.Equal(t, 2*time.Hour, res.ExpiresIn)
}

func TestLogin_DefaultTTLAndUnknownRole(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token": "opaque",
			"user":  map[string]any{"id": "1", "username": "guest", "role": "SUPERUSER"},
		})
	}, func(c *Config) { c.DefaultTTL = 90 * time.Minute })

	res, err := f.gw.Login(context.Background(), "guest", "pw")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, res.ExpiresIn)
	assert.Equal(t, domainauth.RoleEmployee, res.User.Role)
}

func TestLogin_CustomUserPath(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"token": "t",
			"data":  map[string]any{"account": map[string]any{"id": "5", "username": "nested", "role": "EMPLOYEE"}},
		})
	}, func(c *Config) { c.UserPath = "data.account" })

	res, err := f.gw.Login(context.Background(), "nested", "pw")
	require.NoError(t, err)
	assert.Equal(t, "nested", res.User.Username)
}

func TestLogin_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		check  func(error) bool
		msg    string
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]any{"message": "bad"}, apperrors.IsInvalidCredentials, apperrors.MsgInvalidCredentials},
		{"forbidden", http.StatusForbidden, nil, apperrors.IsInvalidCredentials, apperrors.MsgInvalidCredentials},
		{"server error", http.StatusInternalServerError, nil, apperrors.IsServerUnavailable, apperrors.MsgServerError},
		{"bad gateway", http.StatusBadGateway, nil, apperrors.IsServerUnavailable, apperrors.MsgServerError},
		{"bad request with message", http.StatusBadRequest, map[string]any{"message": "Account is locked."}, apperrors.IsValidation, "Account is locked."},
		{"bad request without message", http.StatusBadRequest, nil, apperrors.IsValidation, apperrors.MsgLoginFailed},
		{"success without user", http.StatusOK, map[string]any{"token": "t"}, apperrors.IsServerUnavailable, apperrors.MsgServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})
			_, err := f.gw.Login(context.Background(), "abenali", "wrong")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
			assert.Equal(t, tt.msg, apperrors.UserMessage(err))
		})
	}
}

func TestLogin_NetworkFailure(t *testing.T) {
	f := newFixture(t, func(http.ResponseWriter, *http.Request) {})
	f.srv.Close()

	_, err := f.gw.Login(context.Background(), "abenali", "correct")
	require.Error(t, err)
	assert.True(t, apperrors.IsServerUnavailable(err))
	assert.Equal(t, apperrors.MsgCannotConnect, apperrors.UserMessage(err))
}

func TestLogin_Timeout(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, func(c *Config) { c.Timeout = 50 * time.Millisecond })
	defer close(release)

	_, err := f.gw.Login(context.Background(), "abenali", "correct")
	require.Error(t, err)
	assert.True(t, apperrors.IsServerUnavailable(err))
	assert.Equal(t, apperrors.MsgCannotConnect, apperrors.UserMessage(err))
}

func TestGateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(c *Config) {
		c.BreakerFailures = 2
		c.BreakerCooldown = time.Hour
	})

	for i := 0; i < 2; i++ {
		_, err := f.gw.Login(context.Background(), "abenali", "correct")
		require.Error(t, err)
	}
	_, err := f.gw.Login(context.Background(), "abenali", "correct")
	require.Error(t, err)

	assert.Equal(t, int32(2), f.calls.Load())
	assert.True(t, apperrors.IsServerUnavailable(err))
	assert.Equal(t, apperrors.MsgCannotConnect, apperrors.UserMessage(err))
}

func TestFetchCurrentUser_NoCredentialSkipsNetwork(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := f.gw.FetchCurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotAuthenticated(err))
	assert.Zero(t, f.calls.Load())
}

func TestFetchCurrentUser_ExpiredTokenSkipsNetwork(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f.store.SetSession("tok", "", time.Minute)
	f.clock.Advance(2 * time.Minute)

	_, err := f.gw.FetchCurrentUser(context.Background())
	assert.True(t, apperrors.IsNotAuthenticated(err))
	assert.Zero(t, f.calls.Load())
}

func TestFetchCurrentUser_Bearer(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth/me", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id": "7", "username": "abenali", "role": "TECHNICIAN", "isActive": true,
		})
	})
	f.store.SetSession("tok-1", "", time.Hour)

	user, err := f.gw.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, domainauth.RoleTechnician, user.Role)
}

func TestFetchCurrentUser_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"unauthorized", http.StatusUnauthorized, nil},
		{"forbidden", http.StatusForbidden, nil},
		{"missing username", http.StatusOK, map[string]any{"id": "1"}},
		{"inactive account", http.StatusOK, map[string]any{"id": "1", "username": "x", "isActive": false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})
			f.store.SetSession("tok", "", time.Hour)

			_, err := f.gw.FetchCurrentUser(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsNotAuthenticated(err))
		})
	}
}

func TestFetchCurrentUser_ServerError(t *testing.T) {
	statuses := []int{
		http.StatusInternalServerError,
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusNotFound,
		http.StatusConflict,
	}
	for _, status := range statuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			})
			f.store.SetSession("tok", "", time.Hour)

			_, err := f.gw.FetchCurrentUser(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.IsServerUnavailable(err))
			assert.False(t, apperrors.IsNotAuthenticated(err))
			_, ok := f.store.Snapshot()
			assert.True(t, ok, "a failed check must not drop the session")
		})
	}
}

func TestGateway_CookieSession(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s1", Path: "/"})
			writeJSON(t, w, http.StatusOK, map[string]any{"userId": 3, "username": "cookie", "role": "EMPLOYEE"})
		case "/api/auth/me":
			c, err := r.Cookie("JSESSIONID")
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			assert.Equal(t, "s1", c.Value)
			writeJSON(t, w, http.StatusOK, map[string]any{"id": 3, "username": "cookie", "role": "EMPLOYEE"})
		case "/api/auth/logout":
			w.WriteHeader(http.StatusNoContent)
		}
	})

	_, err := f.gw.Login(context.Background(), "cookie", "pw")
	require.NoError(t, err)

	user, err := f.gw.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", user.ID)

	f.gw.Logout(context.Background())
	assert.False(t, f.gw.jar.HasCookies(f.gw.baseURL))
}

func TestLogout(t *testing.T) {
	t.Run("posts when a token is held and always clears", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/logout", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusInternalServerError)
		})
		f.store.SetSession("tok", "ref", time.Hour)

		f.gw.Logout(context.Background())

		assert.Equal(t, int32(1), f.calls.Load())
		_, held := f.store.Snapshot()
		assert.False(t, held)
	})

	t.Run("no call without credentials", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		f.gw.Logout(context.Background())
		f.gw.Logout(context.Background())

		assert.Zero(t, f.calls.Load())
	})

	t.Run("network failure still clears", func(t *testing.T) {
		f := newFixture(t, func(http.ResponseWriter, *http.Request) {})
		f.store.SetSession("tok", "ref", time.Hour)
		f.srv.Close()

		f.gw.Logout(context.Background())

		_, held := f.store.Snapshot()
		assert.False(t, held)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("success keeps refresh token when omitted", func(t *testing.T) {
		f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/auth/refresh", r.URL.Path)
			var body refreshRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ref-1", body.RefreshToken)
			writeJSON(t, w, http.StatusOK, map[string]any{"token": "tok-2", "expiresIn": 1800})
		})
		f.store.SetSession("tok-1", "ref-1", time.Hour)

		res, err := f.gw.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "tok-2", res.Token)
		assert.Equal(t, "ref-1", res.RefreshToken)
		assert.Equal(t, 30*time.Minute, res.ExpiresIn)

		tok, err := f.store.Token()
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok, "refresh result must not be committed by the gateway")
	})

	tests := []struct {
		name   string
		status int
		body   any
		check  func(error) bool
	}{
		{"rejected", http.StatusUnauthorized, nil, apperrors.IsRefreshFailed},
		{"bad request", http.StatusBadRequest, nil, apperrors.IsRefreshFailed},
		{"no token", http.StatusOK, map[string]any{"expiresIn": 60}, apperrors.IsRefreshFailed},
		{"server error", http.StatusServiceUnavailable, nil, apperrors.IsServerUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})
			f.store.SetSession("tok", "ref", time.Hour)

			_, err := f.gw.Refresh(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error kind: %v", err)
		})
	}
}

func TestJWTLifetime(t *testing.T) {
	now := testutil.TestTime()

	_, ok := jwtLifetime("opaque-token", now)
	assert.False(t, ok)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = jwtLifetime(expired, now)
	assert.False(t, ok)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, ok = jwtLifetime(noExp, now)
	assert.False(t, ok)
}

func TestTokenPayload_ExpiresIn(t *testing.T) {
	tests := []struct {
		name string
		in   tokenPayload
		want time.Duration
	}{
		{"seconds", tokenPayload{ExpiresInSeconds: 3600}, time.Hour},
		{"alias", tokenPayload{ExpiresIn: 90}, 90 * time.Second},
		{"seconds win over alias", tokenPayload{ExpiresInSeconds: 60, ExpiresIn: 90}, time.Minute},
		{"fractional", tokenPayload{ExpiresInSeconds: 1.5}, 1500 * time.Millisecond},
		{"missing", tokenPayload{}, 0},
		{"negative", tokenPayload{ExpiresInSeconds: -5}, 0},
		{"nan", tokenPayload{ExpiresInSeconds: math.NaN()}, 0},
		{"beyond duration range", tokenPayload{ExpiresInSeconds: 9999999999}, time.Duration(math.MaxInt64)},
		{"infinite", tokenPayload{ExpiresInSeconds: math.Inf(1)}, time.Duration(math.MaxInt64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.expiresIn())
		})
	}
}
