package config

import (
	"strings"
	"time"
)

// Bounds applied to API client settings.
const (
	minAPITimeout      = time.Second
	maxAPITimeout      = 2 * time.Minute
	defaultAPITimeout  = 10 * time.Second
	defaultUserPath    = "user"
	defaultBreakerTrip = 5
)

// APIConfig describes how the portal reaches the help-desk REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:3000/api/".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000/api/"`

	// Timeout bounds every API call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`

	// LoginUserPath is a JMESPath expression locating the user object in
	// login and who-am-I responses. "@" means the response is the user itself.
	LoginUserPath string `env:"LOGIN_USER_PATH" envDefault:"user"`

	// BreakerFailures is the number of consecutive transport failures that
	// opens the circuit breaker.
	BreakerFailures uint32 `env:"BREAKER_FAILURES" envDefault:"5"`

	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// Sanitize applies guardrails to API client configuration values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}

	switch {
	case c.Timeout <= 0:
		c.Timeout = defaultAPITimeout
	case c.Timeout < minAPITimeout:
		c.Timeout = minAPITimeout
	case c.Timeout > maxAPITimeout:
		c.Timeout = maxAPITimeout
	}

	if c.LoginUserPath = strings.TrimSpace(c.LoginUserPath); c.LoginUserPath == "" {
		c.LoginUserPath = defaultUserPath
	}

	if c.BreakerFailures == 0 {
		c.BreakerFailures = defaultBreakerTrip
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}
