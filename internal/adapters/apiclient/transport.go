package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	apperrors "github.com/target/helpdesk-portal/internal/errors"
	"golang.org/x/net/publicsuffix"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

var errUpstreamStatus = errors.New("upstream server error")

type response struct {
	status int
	body   []byte
}

func newBreaker(failures uint32, cooldown time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker {
	if failures == 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "helpdesk-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("api circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

// send performs one bounded call through the breaker. Transport failures and
// 5xx responses come back as ServerUnavailable; other statuses are returned
// for the caller to map.
func (g *Gateway) send(ctx context.Context, method, endpoint string, payload any, bearer string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.breaker.Execute(func() (interface{}, error) {
		resp, err := g.roundTrip(ctx, method, endpoint, payload, bearer)
		if err != nil {
			return nil, err
		}
		if resp.status >= http.StatusInternalServerError {
			return resp, fmt.Errorf("%w: %s %s returned %d", errUpstreamStatus, method, endpoint, resp.status)
		}
		return resp, nil
	})
	if err != nil {
		return nil, classifyTransport(err)
	}
	return out.(*response), nil
}

func classifyTransport(err error) error {
	if errors.Is(err, errUpstreamStatus) {
		return apperrors.ServerUnavailable(apperrors.MsgServerError, err)
	}
	// Breaker open, timeout, refused connection and DNS failures all read the same to the user.
	return apperrors.ServerUnavailable(apperrors.MsgCannotConnect, err)
}

func (g *Gateway) roundTrip(ctx context.Context, method, endpoint string, payload any, bearer string) (*response, error) {
	target := g.baseURL.ResolveReference(&url.URL{Path: endpoint})

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, errors.Join(fmt.Errorf("read %s response: %w", endpoint, readErr), closeErr)
	}

	g.logger.DebugContext(ctx, "api call",
		"method", method,
		"endpoint", endpoint,
		"status", resp.StatusCode)

	return &response{status: resp.StatusCode, body: raw}, nil
}

// sessionJar is an in-memory cookie jar that can be dropped on logout.
type sessionJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	j, err := newCookieJar()
	if err != nil {
		return nil, err
	}
	return &sessionJar{jar: j}, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return j, nil
}

func (s *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.jar.SetCookies(u, cookies)
}

func (s *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Cookies(u)
}

// HasCookies reports whether any cookie would be sent to u.
func (s *sessionJar) HasCookies(u *url.URL) bool {
	return len(s.Cookies(u)) > 0
}

// Reset drops every stored cookie.
func (s *sessionJar) Reset() {
	j, err := newCookieJar()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.jar = j
	s.mu.Unlock()
}
