package config

import "strings"

const defaultHTTPAddr = "127.0.0.1:8080"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to. The portal holds a single
	// signed-in session, so it binds to loopback unless told otherwise.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	// SecureCookie marks the CSRF cookie Secure. Ignored in dev mode.
	SecureCookie bool `env:"HTTP_SECURE_COOKIE" envDefault:"true"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr = strings.TrimSpace(h.Addr); h.Addr == "" {
		h.Addr = defaultHTTPAddr
	}
}
