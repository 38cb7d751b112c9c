package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpx "github.com/target/helpdesk-portal/internal/http"
)

const (
	defaultHTTPAddr     = "127.0.0.1:8080"
	shutdownWaitTimeout = 10 * time.Second
)

// buildHTTPHandler wires the router and the outer middleware.
// Order: Recover -> Logging -> RequestID -> Router.
func buildHTTPHandler(rt *Runtime) (http.Handler, error) {
	router, err := httpx.NewRouter(httpx.RouterServices{
		Auth:         rt.Auth,
		Supervisor:   rt.Supervisor,
		Expiry:       rt.Store,
		SecureCookie: rt.Config.SecureCookies(),
		IsDev:        rt.Config.IsDev,
		Logger:       rt.logger,
	})
	if err != nil {
		return nil, err
	}

	h := httpx.RequestID()(router)
	h = httpx.Logging(rt.logger)(h)
	h = httpx.Recover(rt.logger)(h)
	return h, nil
}

func newServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = defaultHTTPAddr
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// serveHTTP runs server on ln until it is shut down.
func serveHTTP(server *http.Server, ln net.Listener, logger *slog.Logger) error {
	logger.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdownHTTPServer gracefully shuts down the HTTP server.
func shutdownHTTPServer(server *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
