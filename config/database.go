package config

import (
	"strings"
	"time"
)

// StorageBackend selects where the job log and ledger live.
type StorageBackend string

const (
	// StorageBackendPostgres keeps the logs in PostgreSQL.
	StorageBackendPostgres StorageBackend = "postgres"
	// StorageBackendMemory keeps everything in process memory.
	StorageBackendMemory StorageBackend = "memory"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend StorageBackend `env:"STORAGE_BACKEND" envDefault:"postgres"`
	// ReplayOnBoot rebuilds the read model from the job log at startup.
	ReplayOnBoot bool `env:"STORAGE_REPLAY_ON_BOOT" envDefault:"true"`
}

// Sanitize falls back to postgres for unknown backends.
func (s *StorageConfig) Sanitize() {
	switch StorageBackend(strings.ToLower(strings.TrimSpace(string(s.Backend)))) {
	case StorageBackendMemory:
		s.Backend = StorageBackendMemory
	default:
		s.Backend = StorageBackendPostgres
	}
}

// UsesPostgres reports whether the postgres backend is selected.
func (s StorageConfig) UsesPostgres() bool {
	return s.Backend == StorageBackendPostgres
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"workmarket"`
	Password string `env:"PASSWORD" envDefault:"workmarket"`
	Name     string `env:"NAME"     envDefault:"workmarket"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// RedisConfig contains Redis configuration. Redis is optional; when disabled,
// once-only marks are kept in memory and the redis pubsub sink is unavailable.
type RedisConfig struct {
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelPort       string   `env:"SENTINEL_PORT"        envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	// MarkPrefix namespaces once-only marks.
	MarkPrefix string `env:"MARK_PREFIX" envDefault:"workmarket:mark:"`
	// MarkTTL bounds how long marks are kept; zero keeps them forever.
	MarkTTL time.Duration `env:"MARK_TTL" envDefault:"0"`
}
