package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/target/workmarket/internal/domain/jobtags"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - redo-escalator",
			input:    "redo-escalator",
			expected: map[ServiceMode]bool{ServiceModeRedoEscalator: true},
		},
		{
			name:  "all services with spaces",
			input: " http , verifier , reaper , redo-escalator ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:          true,
				ServiceModeVerifier:      true,
				ServiceModeReaper:        true,
				ServiceModeRedoEscalator: true,
			},
		},
		{
			name:  "duplicate services",
			input: "http,http,verifier",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:     true,
				ServiceModeVerifier: true,
			},
		},
		{name: "empty string", input: "", expectError: true},
		{name: "only spaces and commas", input: " , , ", expectError: true},
		{name: "invalid service name", input: "http,scheduler", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name     string
		services string
		http     bool
		verifier bool
		reaper   bool
		redo     bool
	}{
		{name: "http only", services: "http", http: true},
		{name: "workers only", services: "verifier,reaper,redo-escalator", verifier: true, reaper: true, redo: true},
		{name: "invalid config disables everything", services: "invalid-service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if got := cfg.IsHTTPServerEnabled(); got != tt.http {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.http, got)
			}
			if got := cfg.IsVerifierEnabled(); got != tt.verifier {
				t.Errorf("IsVerifierEnabled(): expected %v, got %v", tt.verifier, got)
			}
			if got := cfg.IsReaperEnabled(); got != tt.reaper {
				t.Errorf("IsReaperEnabled(): expected %v, got %v", tt.reaper, got)
			}
			if got := cfg.IsRedoEscalatorEnabled(); got != tt.redo {
				t.Errorf("IsRedoEscalatorEnabled(): expected %v, got %v", tt.redo, got)
			}
		})
	}
}

func TestValidServiceModes(t *testing.T) {
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeVerifier,
		ServiceModeReaper,
		ServiceModeRedoEscalator,
	}
	if modes := ValidServiceModes(); !reflect.DeepEqual(modes, expected) {
		t.Errorf("expected %v, got %v", expected, modes)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "MOCK")
	t.Setenv("ADMIN_GROUP", "market-admins")
	t.Setenv("AGENT_GROUP", "market-agents")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com/.well-known/openid-configuration")
	t.Setenv("DEV_AUTH_TOKEN", "local-token")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_GROUPS", "market-admins;devs")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeMock,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
		},
		DevAuth: DevAuthConfig{
			Token:  "local-token",
			UserID: "dev-user",
			Email:  "dev@example.com",
			Groups: []string{"market-admins", "devs"},
		},
		AdminGroup: "market-admins",
		AgentGroup: "market-agents",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_InvalidAuthMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "saml")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected invalid auth mode to fail parsing")
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Storage.Backend != StorageBackendPostgres {
		t.Errorf("expected postgres backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Postgres.Name != "workmarket" {
		t.Errorf("expected workmarket database, got %q", cfg.Postgres.Name)
	}
	if cfg.Logging.Format != LogFormatJSON {
		t.Errorf("expected json logs outside dev, got %q", cfg.Logging.Format)
	}
	if cfg.Market.RedoCap != 3 {
		t.Errorf("expected redo cap 3, got %d", cfg.Market.RedoCap)
	}
	if cfg.Market.StaleClaimAge != 2*time.Hour {
		t.Errorf("expected 2h stale claim age, got %v", cfg.Market.StaleClaimAge)
	}
	if cfg.Economy.GenesisAmount != 50 || cfg.Economy.Treasury != "treasury" {
		t.Errorf("unexpected economy defaults: %+v", cfg.Economy)
	}
	if cfg.Verifier.Concurrency != 4 || cfg.Verifier.Timeout != time.Minute {
		t.Errorf("unexpected verifier defaults: %+v", cfg.Verifier)
	}
	if got := cfg.Verifier.TestRunnerArgs(); !reflect.DeepEqual(got, []string{"python3", "-m", "pytest", "-q"}) {
		t.Errorf("unexpected test runner args: %v", got)
	}
	if cfg.Judge.IsEnabled() {
		t.Error("expected judge to be disabled without an endpoint")
	}
	if cfg.Reaper.PurgeMaxAge != 0 {
		t.Errorf("expected purge disabled by default, got %v", cfg.Reaper.PurgeMaxAge)
	}
	for _, mode := range ValidServiceModes() {
		if !cfg.IsServiceEnabled(mode) {
			t.Errorf("expected %s to be enabled by default", mode)
		}
	}
}

func TestAppConfig_DetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
	if cfg.Logging.Format != LogFormatConsole {
		t.Fatalf("expected console logs in dev mode, got %q", cfg.Logging.Format)
	}
}

func TestSanitize_Guardrails(t *testing.T) {
	cfg := AppConfig{
		Storage:  StorageConfig{Backend: " MEMORY "},
		Logging:  LoggingConfig{Format: "json", Level: "nope"},
		Market:   MarketConfig{DedupThreshold: 4, StaleClaimAge: time.Second, RedoCap: -1},
		Verifier: VerifierConfig{Concurrency: 500, MaxOutput: 1, AutoPenalty: -3},
		Economy:  EconomyConfig{GenesisAmount: -1, MinReward: 10, MaxReward: 5, Scale: 0},
		Reaper:   ReaperConfig{Interval: time.Millisecond, PurgeMaxAge: time.Minute, Actor: " "},
	}
	cfg.Sanitize()

	if cfg.Storage.UsesPostgres() {
		t.Error("expected memory backend")
	}
	if cfg.Logging.SlogLevel().String() != "INFO" {
		t.Errorf("expected unknown level to fall back to info, got %v", cfg.Logging.SlogLevel())
	}
	if cfg.Market.DedupThreshold != 0.92 || cfg.Market.StaleClaimAge != time.Minute || cfg.Market.RedoCap != 3 {
		t.Errorf("unexpected market guardrails: %+v", cfg.Market)
	}
	if cfg.Verifier.Concurrency != 64 || cfg.Verifier.MaxOutput != 1024 || cfg.Verifier.AutoPenalty != 0 {
		t.Errorf("unexpected verifier guardrails: %+v", cfg.Verifier)
	}
	if cfg.Economy.GenesisAmount != 0 || cfg.Economy.MaxReward != 10 || cfg.Economy.Scale != 100 {
		t.Errorf("unexpected economy guardrails: %+v", cfg.Economy)
	}
	if cfg.Reaper.Interval != 5*time.Second || cfg.Reaper.PurgeMaxAge != time.Hour || cfg.Reaper.Actor != "reaper" {
		t.Errorf("unexpected reaper guardrails: %+v", cfg.Reaper)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " "}
	cfg.Sanitize()
	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " statsd:1234 ", Prefix: ".market."}
	cfg.Sanitize()
	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "market" {
		t.Fatalf("expected prefix dots trimmed, got %q", cfg.Prefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		RetryLimit: -1,
		Slack:      SlackNotificationConfig{Enabled: true, WebhookURL: " "},
		PagerDuty:  PagerDutyNotificationConfig{Enabled: true, RoutingKey: " "},
	}
	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit != 0 {
		t.Fatalf("expected retry limit to be clamped to 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled || cfg.PagerDuty.Enabled {
		t.Fatal("expected sinks without credentials to be disabled")
	}
	if cfg.Slack.Username != "workmarket" || cfg.PagerDuty.Source != "workmarket" {
		t.Fatalf("expected workmarket defaults, got %q and %q", cfg.Slack.Username, cfg.PagerDuty.Source)
	}

	cfg = ObservabilityNotificationsConfig{
		Slack:     SlackNotificationConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test"},
		PagerDuty: PagerDutyNotificationConfig{Enabled: true, RoutingKey: "abc"},
	}
	cfg.Sanitize()
	if cfg.Slack.Enabled || cfg.PagerDuty.Enabled {
		t.Fatal("expected sinks to be disabled when top-level notifications disabled")
	}
}

func TestAMQPConfig_Sanitize(t *testing.T) {
	cfg := AMQPConfig{Enabled: true, Exchange: " "}
	cfg.Sanitize()
	if cfg.Enabled {
		t.Fatal("expected amqp disabled without url")
	}
	if cfg.Exchange != "workmarket.events" || cfg.RetryAttempts != 1 {
		t.Fatalf("unexpected amqp defaults: %+v", cfg)
	}
}

func TestLoadArchetypes(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		rules, err := LoadArchetypes("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(rules, jobtags.DefaultArchetypes()) {
			t.Fatalf("expected defaults, got %+v", rules)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "archetypes.yaml")
		body := "archetypes:\n  - name: market_scan\n    keywords: [\"market scan\"]\n  - name: daily_digest\n    keywords: [\"digest\"]\n"
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		rules, err := LoadArchetypes(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []jobtags.ArchetypeRule{
			{Name: "market_scan", Keywords: []string{"market scan"}},
			{Name: "daily_digest", Keywords: []string{"digest"}},
		}
		if !reflect.DeepEqual(rules, expected) {
			t.Fatalf("expected %+v, got %+v", expected, rules)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		if _, err := ParseArchetypes([]byte("archetypes:\n  - keywords: [x]\n")); err == nil {
			t.Fatal("expected error for unnamed archetype")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadArchetypes(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}
