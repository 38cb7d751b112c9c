package config

import "strings"

// DefaultSessionEventChannel is the pub/sub channel used for cross-instance sign-out events.
const DefaultSessionEventChannel = "helpdesk-portal:session-events"

// RedisConfig contains configuration for the session event bus.
type RedisConfig struct {
	// Enabled turns on cross-instance session events.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	// Channel is the pub/sub channel carrying session events.
	Channel string `env:"CHANNEL" envDefault:"helpdesk-portal:session-events"`
}

// Sanitize applies guardrails to Redis configuration values.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	if c.Channel = strings.TrimSpace(c.Channel); c.Channel == "" {
		c.Channel = DefaultSessionEventChannel
	}
	if c.DB < 0 {
		c.DB = 0
	}
}
