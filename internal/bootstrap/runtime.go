package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/helpdesk-portal/config"
	"github.com/target/helpdesk-portal/internal/adapters/apiclient"
	"github.com/target/helpdesk-portal/internal/adapters/memstore"
	redisadapter "github.com/target/helpdesk-portal/internal/adapters/redis"
	"github.com/target/helpdesk-portal/internal/clock"
	"github.com/target/helpdesk-portal/internal/observability/statsd"
	"github.com/target/helpdesk-portal/internal/ports"
	"github.com/target/helpdesk-portal/internal/service"
)

// RuntimeDeps groups dependencies for NewRuntime.
type RuntimeDeps struct {
	Config *config.AppConfig
	// Redis is optional; session events are disabled without it.
	Redis  redis.UniversalClient
	Clock  clock.Clock
	Logger *slog.Logger
	// APIClient overrides the HTTP client used to reach the help-desk API.
	APIClient *http.Client
}

// Runtime holds the wired portal: session store, gateway, auth state machine,
// refresh supervisor, optional event bus and the HTTP handler serving them.
type Runtime struct {
	Config     *config.AppConfig
	Store      *memstore.SessionStore
	Gateway    *apiclient.Gateway
	Auth       *service.AuthContext
	Supervisor *service.Supervisor
	Events     ports.SessionEvents
	Metrics    *statsd.Client
	Handler    http.Handler

	logger *slog.Logger
}

// NewRuntime wires every component from configuration. Nothing is started.
func NewRuntime(deps RuntimeDeps) (*Runtime, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	metricsSink := buildMetrics(logger, cfg.Observability.Metrics)
	store := memstore.NewSessionStore(clk)

	gateway, err := apiclient.NewGateway(apiclient.Options{
		Config: apiclient.Config{
			BaseURL:         cfg.API.BaseURL,
			Timeout:         cfg.API.Timeout,
			UserPath:        cfg.API.LoginUserPath,
			DefaultTTL:      cfg.Session.DefaultTTL,
			BreakerFailures: cfg.API.BreakerFailures,
			BreakerCooldown: cfg.API.BreakerCooldown,
			Client:          deps.APIClient,
		},
		Store:  store,
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth gateway: %w", err)
	}

	events, err := buildSessionEvents(deps.Redis, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	auth, err := service.NewAuthContext(service.AuthContextOptions{
		Gateway: gateway,
		Store:   store,
		Events:  events,
		Metrics: metricsSink,
		Clock:   clk,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth context: %w", err)
	}

	supervisor, err := service.NewSupervisor(service.SupervisorOptions{
		Auth:      auth,
		Gateway:   gateway,
		Store:     store,
		Clock:     clk,
		Metrics:   metricsSink,
		Logger:    logger,
		Interval:  cfg.Session.RefreshInterval,
		Lookahead: cfg.Session.RefreshLookahead,
	})
	if err != nil {
		return nil, fmt.Errorf("build session supervisor: %w", err)
	}

	rt := &Runtime{
		Config:     cfg,
		Store:      store,
		Gateway:    gateway,
		Auth:       auth,
		Supervisor: supervisor,
		Events:     events,
		Metrics:    metricsSink,
		logger:     logger,
	}

	handler, err := buildHTTPHandler(rt)
	if err != nil {
		supervisor.Close()
		return nil, err
	}
	rt.Handler = handler
	return rt, nil
}

// buildMetrics returns a StatsD client; failures fall back to a client that drops metrics.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if cfg.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.StatsdAddress,
			Prefix:  cfg.Prefix,
			Logger:  logger,
		})
		if err == nil {
			return client
		}
		logger.Error("failed to initialise statsd client", "error", err)
	}
	client, _ := statsd.NewClient(statsd.Config{Logger: logger})
	return client
}

// buildSessionEvents returns nil when cross-instance events are disabled.
//
//nolint:ireturn // callers only need the port.
func buildSessionEvents(client redis.UniversalClient, cfg config.RedisConfig, logger *slog.Logger) (ports.SessionEvents, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if client == nil {
		logger.Warn("session events disabled: redis client not configured")
		return nil, nil
	}
	events, err := redisadapter.NewSessionEvents(redisadapter.SessionEventsOptions{
		Client:  client,
		Channel: cfg.Channel,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session events: %w", err)
	}
	return events, nil
}
