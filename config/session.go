package config

import "time"

// Session refresh defaults.
const (
	defaultSessionTTL       = 24 * time.Hour
	defaultRefreshInterval  = 10 * time.Minute
	defaultRefreshLookahead = 5 * time.Minute
	minRefreshInterval      = 30 * time.Second
)

// SessionConfig controls how long sessions are assumed to live and when they are refreshed.
type SessionConfig struct {
	// DefaultTTL is used when neither the API response nor the token carries a lifetime.
	DefaultTTL time.Duration `env:"DEFAULT_TTL" envDefault:"24h"`

	// RefreshInterval is the period of the background refresh while the page is visible.
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"10m"`

	// RefreshLookahead is how long before expiry the one-shot refresh fires.
	RefreshLookahead time.Duration `env:"REFRESH_LOOKAHEAD" envDefault:"5m"`
}

// Sanitize applies guardrails to session timing. The lookahead is kept
// strictly below the refresh interval.
func (c *SessionConfig) Sanitize() {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = defaultSessionTTL
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.RefreshInterval < minRefreshInterval {
		c.RefreshInterval = minRefreshInterval
	}
	if c.RefreshLookahead <= 0 {
		c.RefreshLookahead = defaultRefreshLookahead
	}
	if c.RefreshLookahead >= c.RefreshInterval {
		c.RefreshLookahead = c.RefreshInterval / 2
	}
}
