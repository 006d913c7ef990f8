package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/workmarket/config"
	httpx "github.com/target/workmarket/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler wires the API router over the service container.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	svcs := cfg.Services
	if svcs == nil {
		svcs = &ServiceContainer{}
	}

	services := httpx.RouterServices{
		Market:       svcs.Market,
		Ledger:       svcs.Ledger,
		Verifier:     svcs.Verifier,
		Redo:         svcs.Redo,
		Notes:        svcs.Notes,
		Readiness:    svcs.Readiness,
		MaxBodyBytes: appCfg.HTTP.MaxBodyBytes,
		Logger:       cfg.Logger,
	}
	// A nil *AuthService stored in the interface would not compare equal to nil.
	if svcs.Auth != nil {
		services.Auth = svcs.Auth
	}
	return httpx.NewRouter(services)
}

// StartHTTPServer binds the listener and serves in the background. Serve
// errors other than a clean shutdown are sent on the returned channel.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, <-chan error, error) {
	if cfg == nil {
		return nil, nil, errors.New("http server config is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	addr := appCfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		cfg.Logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	return server, errCh, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := cfg.Context
	if base == nil {
		base = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(base), timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
