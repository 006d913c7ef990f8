package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/target/workmarket/config"
)

// InitLogger builds the process logger from cfg and installs it as the slog default.
// Console format uses tint for colorized local output; everything else is JSON.
func InitLogger(cfg config.LoggingConfig) *slog.Logger {
	logger := newLogger(os.Stdout, cfg)
	slog.SetDefault(logger)
	return logger
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level := cfg.SlogLevel()
	if cfg.Format == config.LogFormatConsole {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoadConfig reads dotenv files into the environment, then parses AppConfig from
// it. ENV_FILE names a comma-separated list of files; without it ./.env is used
// when present. Variables already set in the environment win over file values.
func LoadConfig() (config.AppConfig, error) {
	if err := loadDotenv(os.Getenv("ENV_FILE")); err != nil {
		return config.AppConfig{}, err
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

func loadDotenv(list string) error {
	var files []string
	for _, f := range strings.Split(list, ",") {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("load env files %v: %w", files, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env file: %w", err)
	}
	return nil
}

// ValidateServiceConfig reports every problem that would stop the enabled
// services from running, joined into one error.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	var errs []error
	if _, err := cfg.GetEnabledServices(); err != nil {
		errs = append(errs, fmt.Errorf("invalid service configuration: %w", err))
	}
	if cfg.Auth.Mode == config.AuthModeMock && !cfg.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock is only allowed with DEV=true"))
	}
	if cfg.Storage.UsesPostgres() && (cfg.Postgres.Host == "" || cfg.Postgres.Name == "") {
		errs = append(errs, errors.New("STORAGE_BACKEND=postgres requires DB_HOST and DB_NAME"))
	}
	if cfg.Observability.RedisPubSub.Enabled && !cfg.Redis.Enabled {
		errs = append(errs, errors.New("OBSERVABILITY_REDIS_PUBSUB_ENABLED requires REDIS_ENABLED"))
	}
	return errors.Join(errs...)
}

// GetEnabledServices returns the sorted names of enabled services, or nil when
// SERVICES does not parse.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return nil
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(services))
	for svc := range services {
		names = append(names, string(svc))
	}
	slices.Sort(names)
	return names
}
