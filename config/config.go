// Package config loads workmarket settings from the environment with
// caarlos0/env. Each concern lives in its own file and struct; AppConfig
// composes them and Sanitize clamps whatever the environment got wrong.
package config

import (
	"os"
	"slices"
	"strings"
)

// AppConfig is the full process configuration.
type AppConfig struct {
	// IsDev switches on console logs and allows AUTH_MODE=mock. DEV=true sets
	// it, as does NODE_ENV=development or NODE_ENV=dev.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig
	HTTP HTTPConfig

	Storage  StorageConfig
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Logging       LoggingConfig
	Observability ObservabilityConfig

	// Services lists the long-running components this process runs.
	Services string `env:"SERVICES" envDefault:"http,verifier,reaper,redo-escalator"`

	Market   MarketConfig
	Verifier VerifierConfig
	Judge    JudgeConfig
	Economy  EconomyConfig
	Reaper   ReaperConfig
}

// Sanitize must run once after parsing and before the config is used.
func (c *AppConfig) Sanitize() {
	if !c.IsDev {
		c.IsDev = slices.Contains([]string{"development", "dev"}, strings.ToLower(os.Getenv("NODE_ENV")))
	}

	c.Storage.Sanitize()
	c.HTTP.Sanitize()
	c.Logging.Sanitize(c.IsDev)
	c.Market.Sanitize()
	c.Verifier.Sanitize()
	c.Judge.Sanitize()
	c.Economy.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices parses SERVICES.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsServiceEnabled reports whether mode is listed in SERVICES. An unparsable
// list enables nothing.
func (c *AppConfig) IsServiceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	return err == nil && services[mode]
}

func (c *AppConfig) IsHTTPServerEnabled() bool    { return c.IsServiceEnabled(ServiceModeHTTP) }
func (c *AppConfig) IsVerifierEnabled() bool      { return c.IsServiceEnabled(ServiceModeVerifier) }
func (c *AppConfig) IsReaperEnabled() bool        { return c.IsServiceEnabled(ServiceModeReaper) }
func (c *AppConfig) IsRedoEscalatorEnabled() bool { return c.IsServiceEnabled(ServiceModeRedoEscalator) }
