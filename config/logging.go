package config

import (
	"log/slog"
	"strings"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatConsole writes colorized human-readable lines.
	LogFormatConsole LogFormat = "console"
)

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string    `env:"LOG_LEVEL"  envDefault:"info"`
	Format LogFormat `env:"LOG_FORMAT"`
}

// Sanitize defaults the format to console in dev mode and JSON otherwise.
func (l *LoggingConfig) Sanitize(isDev bool) {
	switch LogFormat(strings.ToLower(strings.TrimSpace(string(l.Format)))) {
	case LogFormatJSON:
		l.Format = LogFormatJSON
	case LogFormatConsole:
		l.Format = LogFormatConsole
	default:
		l.Format = LogFormatJSON
		if isDev {
			l.Format = LogFormatConsole
		}
	}
}

// SlogLevel parses Level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
