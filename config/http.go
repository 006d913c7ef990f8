package config

import "time"

// HTTPConfig configures the agent and admin API listener.
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL prefixes job links in operator notices.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"    envDefault:"30s"`
	MaxBodyBytes      int64         `env:"HTTP_MAX_BODY_BYTES"      envDefault:"1048576"`
}

// Sanitize restores defaults for non-positive timeouts and keeps the body cap
// at 1 KiB or more.
func (h *HTTPConfig) Sanitize() {
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 30 * time.Second
	}
	h.MaxBodyBytes = max(h.MaxBodyBytes, 1024)
}
