package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryConfig parses defaults from a fixed environment so tests never see the host env.
func memoryConfig(t *testing.T, overrides map[string]string) *config.AppConfig {
	t.Helper()
	environment := map[string]string{
		"STORAGE_BACKEND": "memory",
		"AUTH_MODE":       "mock",
		"DEV":             "true",
		"DEV_AUTH_TOKEN":  "dev-token",
		"HTTP_ADDR":       "127.0.0.1:0",
	}
	for k, v := range overrides {
		environment[k] = v
	}
	var cfg config.AppConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()
	return &cfg
}

func newTestServices(t *testing.T, cfg *config.AppConfig) *ServiceContainer {
	t.Helper()
	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	t.Cleanup(func() { _ = svcs.Close() })
	return svcs
}

func TestBuildRepositories(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		repos, err := buildRepositories(memoryConfig(t, nil), nil, nil)
		if err != nil {
			t.Fatalf("buildRepositories() error = %v", err)
		}
		if repos.Events == nil || repos.Ledger == nil || repos.Notes == nil || repos.Store == nil {
			t.Fatalf("expected all repositories, got %+v", repos)
		}
		if repos.Marks != nil {
			t.Fatal("expected no mark store without redis")
		}
	})

	t.Run("postgres without connection", func(t *testing.T) {
		cfg := memoryConfig(t, map[string]string{"STORAGE_BACKEND": "postgres"})
		if _, err := buildRepositories(cfg, nil, nil); err == nil {
			t.Fatal("expected error without a database connection")
		}
	})
}

func TestNewServicesMemoryBackend(t *testing.T) {
	svcs := newTestServices(t, memoryConfig(t, nil))

	if svcs.Market == nil || svcs.Ledger == nil || svcs.Verifier == nil || svcs.Redo == nil {
		t.Fatalf("expected core services, got %+v", svcs)
	}
	if svcs.Auth == nil {
		t.Fatal("expected dev auth service in dev mode")
	}
	if svcs.Observability.MetricsSink != nil {
		t.Fatal("expected metrics disabled by default")
	}
}

func TestNewServicesRejectsBadArchetypes(t *testing.T) {
	cfg := memoryConfig(t, map[string]string{"MARKET_ARCHETYPES_FILE": "/nonexistent/archetypes.yaml"})
	if _, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()}); err == nil {
		t.Fatal("expected error for missing archetypes file")
	}
}

func TestReplayOnBoot(t *testing.T) {
	cfg := memoryConfig(t, nil)
	svcs := newTestServices(t, cfg)
	ctx := context.Background()

	job, err := svcs.Market.Create(ctx, *testutil.NewJobRequest().Unique().Build())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := ReplayOnBoot(ctx, cfg, svcs, discardLogger()); err != nil {
		t.Fatalf("ReplayOnBoot() error = %v", err)
	}
	got, err := svcs.Market.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get() after replay error = %v", err)
	}
	if got.Status != model.JobStatusOpen {
		t.Fatalf("status = %q, want open", got.Status)
	}

	cfg.Storage.ReplayOnBoot = false
	if err := ReplayOnBoot(ctx, cfg, svcs, nil); err != nil {
		t.Fatalf("ReplayOnBoot() disabled error = %v", err)
	}
}

func TestBuildHTTPHandler(t *testing.T) {
	cfg := memoryConfig(t, nil)
	handler := BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Services: newTestServices(t, cfg), Logger: discardLogger()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/notes", nil)
	req.Header.Set("Authorization", "Bearer dev-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin notes with dev token status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBuildHTTPHandlerWithoutAuth(t *testing.T) {
	cfg := memoryConfig(t, nil)
	svcs := newTestServices(t, cfg)
	svcs.Auth = nil

	handler := BuildHTTPHandler(&HTTPServerConfig{Config: cfg, Services: svcs, Logger: discardLogger()})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/replay", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestStartAndShutdownHTTPServer(t *testing.T) {
	cfg := memoryConfig(t, nil)
	server, serveErr, err := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg,
		Services: newTestServices(t, cfg),
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("StartHTTPServer() error = %v", err)
	}

	if err := ShutdownHTTPServer(ShutdownConfig{Server: server, Timeout: time.Second}); err != nil {
		t.Fatalf("ShutdownHTTPServer() error = %v", err)
	}
	if err, ok := <-serveErr; ok && err != nil {
		t.Fatalf("serve error = %v", err)
	}
}

func TestSelectBackground(t *testing.T) {
	all := newBackgroundServices(&ServiceOrchestrationConfig{
		Config:   memoryConfig(t, nil),
		Services: &ServiceContainer{},
	})

	tests := []struct {
		name    string
		enabled map[config.ServiceMode]bool
		want    []string
	}{
		{name: "none", enabled: map[config.ServiceMode]bool{config.ServiceModeHTTP: true}},
		{
			name:    "verifier only",
			enabled: map[config.ServiceMode]bool{config.ServiceModeVerifier: true},
			want:    []string{"verifier"},
		},
		{
			name: "all background",
			enabled: map[config.ServiceMode]bool{
				config.ServiceModeVerifier:      true,
				config.ServiceModeReaper:        true,
				config.ServiceModeRedoEscalator: true,
			},
			want: []string{"verifier", "reaper", "redo escalator"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectBackground(tt.enabled, all)
			if len(got) != len(tt.want) {
				t.Fatalf("selected %d services, want %d", len(got), len(tt.want))
			}
			for i, svc := range got {
				if svc.name != tt.want[i] {
					t.Fatalf("service[%d] = %q, want %q", i, svc.name, tt.want[i])
				}
			}
		})
	}
}

func TestRunServicesFirstFailureStopsOthers(t *testing.T) {
	stopped := make(chan struct{})
	boom := errors.New("boom")

	err := runServices(context.Background(), runDeps{
		logger: discardLogger(),
		backgrounds: []backgroundService{
			{name: "blocker", start: func(ctx context.Context) error {
				<-ctx.Done()
				close(stopped)
				return ctx.Err()
			}},
			{name: "failer", start: func(context.Context) error { return boom }},
		},
	})

	if !errors.Is(err, boom) {
		t.Fatalf("runServices() error = %v, want boom", err)
	}
	if !strings.Contains(err.Error(), "failer failed") {
		t.Fatalf("error %q does not name the failing service", err)
	}
	select {
	case <-stopped:
	default:
		t.Fatal("blocking service was not stopped")
	}
}

func TestRunServicesCancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	done := make(chan error, 1)
	go func() {
		done <- runServices(ctx, runDeps{
			logger: logger,
			backgrounds: []backgroundService{
				{name: "loop", start: func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				}},
			},
		})
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runServices() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runServices did not return after cancel")
	}
	if !strings.Contains(buf.String(), "loop stopped") {
		t.Fatalf("expected stop log, got %q", buf.String())
	}
}

func TestRunServicesWithShutdownValidates(t *testing.T) {
	if err := RunServicesWithShutdown(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
