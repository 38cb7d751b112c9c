package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/target/helpdesk-portal/internal/ports"
	"golang.org/x/sync/errgroup"
)

// Run listens on the configured address and serves until ctx is cancelled.
func (rt *Runtime) Run(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addrOrDefault(rt.Config.HTTP.Addr))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return rt.Serve(ctx, ln)
}

// Serve runs the portal on ln: the HTTP server, the startup session check and
// the session event listener share one cancellable context. When ctx ends or
// any of them fails, the Supervisor is stopped before the server shuts down.
func (rt *Runtime) Serve(ctx context.Context, ln net.Listener) error {
	if rt == nil || rt.Handler == nil {
		return errors.New("runtime is not initialised")
	}

	g, gctx := errgroup.WithContext(ctx)
	server := newServer(ln.Addr().String(), rt.Handler)

	g.Go(func() error {
		return serveHTTP(server, ln, rt.logger)
	})

	g.Go(func() error {
		rt.Auth.Init(gctx)
		rt.logger.InfoContext(gctx, "startup session check finished", "phase", rt.Auth.State().Phase)
		return nil
	})

	if rt.Events != nil {
		g.Go(func() error {
			err := rt.Events.Listen(gctx, func(evt ports.SessionEvent) {
				rt.Auth.HandleSessionEvent(gctx, evt)
			})
			if err != nil {
				return fmt.Errorf("session events: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		rt.Supervisor.Close()
		return shutdownHTTPServer(server, rt.logger)
	})

	return g.Wait()
}

// Close releases resources owned by the runtime.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	if rt.Supervisor != nil {
		rt.Supervisor.Close()
	}
	return rt.Metrics.Close()
}

func addrOrDefault(addr string) string {
	if addr == "" {
		return defaultHTTPAddr
	}
	return addr
}
