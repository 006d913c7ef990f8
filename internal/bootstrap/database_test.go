package bootstrap

import (
	"database/sql"
	"net/url"
	"testing"
	"time"

	"github.com/target/workmarket/config"
)

func TestDSNEscapesCredentials(t *testing.T) {
	dsn := DSN(config.DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "market",
		Password: "p@ss/word",
		Name:     "workmarket",
		SSLMode:  "require",
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	if pw, _ := u.User.Password(); pw != "p@ss/word" {
		t.Fatalf("password = %q", pw)
	}
	if u.Host != "db.internal:5433" || u.Path != "/workmarket" {
		t.Fatalf("unexpected host/path %q %q", u.Host, u.Path)
	}
	if got := u.Query().Get("sslmode"); got != "require" {
		t.Fatalf("sslmode = %q", got)
	}
}

func TestApplyPoolLimits(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://u:p@127.0.0.1:1/x")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	applyPoolLimits(db, config.DBConfig{MaxOpenConns: 7, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	if got := db.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("max open = %d, want 7", got)
	}
}

func TestRedisOptions(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.RedisConfig
		wantAddrs []string
		wantDesc  string
		wantErr   bool
	}{
		{
			name:      "bare address",
			cfg:       config.RedisConfig{URI: " localhost:6379 ", Password: "secret"},
			wantAddrs: []string{"localhost:6379"},
			wantDesc:  "localhost:6379",
		},
		{
			name:      "url with credentials and db",
			cfg:       config.RedisConfig{URI: "redis://user:pw@cache:6380/3"},
			wantAddrs: []string{"cache:6380"},
			wantDesc:  "cache:6380",
		},
		{
			name:    "direct without uri",
			cfg:     config.RedisConfig{URI: "  "},
			wantErr: true,
		},
		{
			name:      "sentinel",
			cfg:       config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s1:26379", " "}, SentinelMasterName: "primary"},
			wantAddrs: []string{"s1:26379"},
			wantDesc:  "sentinel:primary",
		},
		{
			name:    "sentinel without nodes",
			cfg:     config.RedisConfig{UseSentinel: true},
			wantErr: true,
		},
		{
			name:      "cluster nodes",
			cfg:       config.RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:7000", "n2:7000"}},
			wantAddrs: []string{"n1:7000", "n2:7000"},
			wantDesc:  "cluster:n1:7000,n2:7000",
		},
		{
			name:      "cluster falls back to uri",
			cfg:       config.RedisConfig{UseCluster: true, URI: "rediss://cfg.cache:6379"},
			wantAddrs: []string{"cfg.cache:6379"},
			wantDesc:  "cluster:cfg.cache:6379",
		},
		{
			name:    "cluster without any address",
			cfg:     config.RedisConfig{UseCluster: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, desc, err := redisOptions(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if desc != tt.wantDesc {
				t.Fatalf("desc = %q, want %q", desc, tt.wantDesc)
			}
			if len(opts.Addrs) != len(tt.wantAddrs) {
				t.Fatalf("addrs = %v, want %v", opts.Addrs, tt.wantAddrs)
			}
			for i := range opts.Addrs {
				if opts.Addrs[i] != tt.wantAddrs[i] {
					t.Fatalf("addrs = %v, want %v", opts.Addrs, tt.wantAddrs)
				}
			}
		})
	}
}

func TestRedisOptionsURLDetails(t *testing.T) {
	opts, _, err := redisOptions(config.RedisConfig{URI: "rediss://user:pw@cache:6380/3", Password: "ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Username != "user" || opts.Password != "pw" || opts.DB != 3 {
		t.Fatalf("unexpected credentials/db: %q %q %d", opts.Username, opts.Password, opts.DB)
	}
	if opts.TLSConfig == nil {
		t.Fatal("rediss should enable TLS")
	}
}
