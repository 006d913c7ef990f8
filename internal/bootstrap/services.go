package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/workmarket/config"
	"github.com/target/workmarket/internal/adapters/judge"
	"github.com/target/workmarket/internal/adapters/sandbox"
	"github.com/target/workmarket/internal/core"
	"github.com/target/workmarket/internal/data"
	"github.com/target/workmarket/internal/domain/dedup"
	"github.com/target/workmarket/internal/domain/economy"
	domainjob "github.com/target/workmarket/internal/domain/job"
	"github.com/target/workmarket/internal/domain/redo"
	"github.com/target/workmarket/internal/domain/verify"
	httpx "github.com/target/workmarket/internal/http"
	"github.com/target/workmarket/internal/observability/notify/amqp"
	"github.com/target/workmarket/internal/observability/notify/pagerduty"
	"github.com/target/workmarket/internal/observability/notify/redispub"
	"github.com/target/workmarket/internal/observability/notify/slack"
	"github.com/target/workmarket/internal/observability/statsd"
	"github.com/target/workmarket/internal/service"
	"github.com/target/workmarket/internal/service/broadcast"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Market      *service.MarketService
	Ledger      *service.LedgerService
	Verifier    *service.VerificationService
	Redo        *service.RedoEscalator
	Notes       core.NoteRepository
	Auth        *service.AuthService
	Notifier    *domainjob.DefaultNotifier
	Broadcaster *broadcast.Service
	// Readiness pings the storage backends behind /readyz.
	Readiness []httpx.ReadinessCheck

	Observability ObservabilityContainer
	closers       []func() error
}

// Close stops observers and releases sink connections.
func (c *ServiceContainer) Close() error {
	if c.Notifier != nil {
		c.Notifier.StopAll()
	}
	if c.Broadcaster != nil {
		c.Broadcaster.Close()
	}
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   statsd.Sink
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization. DB is required
// for the postgres backend; RedisClient is optional.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups the storage adapters backing service ports.
type serviceRepositories struct {
	Events core.JobEventRepository
	Store  core.JobStore
	Ledger core.LedgerRepository
	Notes  core.NoteRepository
	Marks  core.MarkStore
}

// buildRepositories selects postgres or in-memory logs. The job read model is
// always in memory and rebuilt from the log on boot.
func buildRepositories(cfg *config.AppConfig, db *sql.DB, rdb redis.UniversalClient) (*serviceRepositories, error) {
	repos := &serviceRepositories{Store: data.NewMemoryJobStore()}
	if rdb != nil {
		repos.Marks = data.NewRedisMarkStore(rdb)
	}

	if !cfg.Storage.UsesPostgres() {
		repos.Events = data.NewMemoryEventRepo()
		repos.Ledger = data.NewMemoryLedgerRepo()
		repos.Notes = data.NewMemoryNoteRepo()
		return repos, nil
	}
	if db == nil {
		return nil, errors.New("postgres storage selected but no database connection")
	}
	repos.Events = data.NewEventRepo(db)
	repos.Ledger = data.NewLedgerRepo(db)
	repos.Notes = data.NewNoteRepo(db)
	return repos, nil
}

// buildObservability configures the metrics sink. A failed statsd dial is
// logged and metrics stay off.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	out := ObservabilityContainer{MetricsConfig: cfg.Metrics}
	if !cfg.Metrics.IsEnabled() {
		return out
	}
	client, err := statsd.NewClient(statsd.Config{
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Tags:    cfg.Metrics.Tags,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return out
	}
	out.MetricsSink = client
	return out
}

type broadcastDeps struct {
	Config   *config.AppConfig
	Redis    redis.UniversalClient
	Notifier *domainjob.DefaultNotifier
	Logger   *slog.Logger
}

// buildBroadcaster registers every configured state and notice sink. A sink that
// fails to initialise is logged and skipped; the marketplace runs without it.
func buildBroadcaster(deps broadcastDeps) (*broadcast.Service, []func() error) {
	obs := deps.Config.Observability
	logger := deps.Logger
	var (
		stateSinks  []broadcast.StateSinkRegistration
		noticeSinks []broadcast.NoticeSinkRegistration
		closers     []func() error
	)

	if obs.RedisPubSub.Enabled {
		if deps.Redis == nil {
			logger.Warn("redis pubsub sink enabled but redis is not configured")
		} else if pub, err := redispub.New(redispub.Options{Client: deps.Redis, Prefix: obs.RedisPubSub.Prefix}); err != nil {
			logger.Error("failed to initialise redis pubsub sink", "error", err)
		} else {
			stateSinks = append(stateSinks, broadcast.StateSinkRegistration{Name: "redis", Sink: pub})
			noticeSinks = append(noticeSinks, broadcast.NoticeSinkRegistration{Name: "redis", Sink: pub})
		}
	}

	if obs.AMQP.Enabled {
		pub, err := amqp.Dial(amqp.Config{
			URL:           obs.AMQP.URL,
			Exchange:      obs.AMQP.Exchange,
			Heartbeat:     obs.AMQP.Heartbeat,
			RetryAttempts: obs.AMQP.RetryAttempts,
			RetryInterval: obs.AMQP.RetryInterval,
		}, logger)
		if err != nil {
			logger.Error("failed to initialise amqp sink", "error", err)
		} else {
			stateSinks = append(stateSinks, broadcast.StateSinkRegistration{Name: "amqp", Sink: pub})
			noticeSinks = append(noticeSinks, broadcast.NoticeSinkRegistration{Name: "amqp", Sink: pub})
			closers = append(closers, pub.Close)
		}
	}

	noticeSinks = append(noticeSinks, buildNoticeSinks(logger, deps.Config)...)

	return broadcast.NewService(broadcast.Options{
		Logger:      logger,
		StateSinks:  stateSinks,
		NoticeSinks: noticeSinks,
		Local:       deps.Notifier,
		Timeout:     obs.Notifications.Timeout,
	}), closers
}

func buildNoticeSinks(logger *slog.Logger, cfg *config.AppConfig) []broadcast.NoticeSinkRegistration {
	notifications := cfg.Observability.Notifications
	if !notifications.Enabled {
		return nil
	}

	sinks := make([]broadcast.NoticeSinkRegistration, 0, 2)

	if notifications.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   notifications.Slack.WebhookURL,
			Channel:      notifications.Slack.Channel,
			Username:     notifications.Slack.Username,
			Timeout:      notifications.Timeout,
			RetryLimit:   notifications.RetryLimit,
			JobURLPrefix: strings.TrimSuffix(cfg.HTTP.BaseURL, "/") + "/api/jobs",
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, broadcast.NoticeSinkRegistration{Name: "slack", Sink: client})
		}
	}

	if notifications.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: notifications.PagerDuty.RoutingKey,
			Source:     notifications.PagerDuty.Source,
			Component:  notifications.PagerDuty.Component,
			Timeout:    notifications.Timeout,
			RetryLimit: notifications.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, broadcast.NoticeSinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return sinks
}

// buildVerifierRegistry wires the sandbox runner and, when configured, the judge client.
func buildVerifierRegistry(cfg *config.AppConfig, logger *slog.Logger) (*verify.Registry, error) {
	runner := sandbox.NewRunner(sandbox.Options{
		BaseDir:   cfg.Verifier.SandboxDir,
		MaxOutput: cfg.Verifier.MaxOutput,
		Logger:    logger,
	})

	deps := verify.Dependencies{
		Python: verify.PythonOptions{
			Runner:     runner,
			Python:     cfg.Verifier.PythonBinary,
			Timeout:    cfg.Verifier.Timeout,
			TestRunner: cfg.Verifier.TestRunner,
		},
	}

	if cfg.Judge.IsEnabled() {
		opts := judge.Options{
			Endpoint:   cfg.Judge.Endpoint,
			OKExpr:     cfg.Judge.OKExpr,
			ReasonExpr: cfg.Judge.ReasonExpr,
			Timeout:    cfg.Judge.Timeout,
			Logger:     logger,
		}
		if cfg.Judge.UsesOAuth() {
			opts.OAuth = &judge.OAuthConfig{
				TokenURL:     cfg.Judge.TokenURL,
				ClientID:     cfg.Judge.ClientID,
				ClientSecret: cfg.Judge.ClientSecret,
				Scopes:       cfg.Judge.Scopes,
			}
		}
		client, err := judge.NewClient(opts)
		if err != nil {
			return nil, fmt.Errorf("create judge client: %w", err)
		}
		deps.Judge = client
	}

	return verify.DefaultRegistry(deps), nil
}

// NewServices wires every marketplace service from deps. ctx bounds the work
// done while wiring (OIDC discovery).
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := buildRepositories(cfg, deps.DB, deps.RedisClient)
	if err != nil {
		return nil, err
	}
	archetypes, err := config.LoadArchetypes(cfg.Market.ArchetypesFile)
	if err != nil {
		return nil, err
	}

	observability := buildObservability(logger, cfg.Observability)
	metrics := observability.MetricsSink
	notifier := domainjob.NewNotifier()
	broadcaster, closers := buildBroadcaster(broadcastDeps{
		Config:   cfg,
		Redis:    deps.RedisClient,
		Notifier: notifier,
		Logger:   logger,
	})
	if client, ok := metrics.(*statsd.Client); ok {
		closers = append(closers, client.Close)
	}

	ledger, err := service.NewLedgerService(service.LedgerServiceOptions{
		Repo:          repos.Ledger,
		Treasury:      cfg.Economy.Treasury,
		GenesisAmount: cfg.Economy.GenesisAmount,
		DualAward:     cfg.Economy.DualAward,
		Agents:        economy.NewAgentSet(cfg.Economy.Treasury, cfg.Economy.AgentIDs, cfg.Economy.HumanIDs),
		Logger:        logger,
		Metrics:       metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create ledger service: %w", err)
	}

	stale, err := domainjob.NewStalePolicy(cfg.Market.StaleClaimAge)
	if err != nil {
		return nil, fmt.Errorf("stale claim policy: %w", err)
	}

	market, err := service.NewMarketService(service.MarketServiceOptions{
		Events: repos.Events,
		Store:  repos.Store,
		Ledger: ledger,
		Guard: dedup.NewGuard(dedup.Options{
			Threshold:  cfg.Market.DedupThreshold,
			Window:     cfg.Market.DedupWindow,
			Archetypes: archetypes,
		}),
		Broadcaster: broadcaster,
		StalePolicy: stale,
		RewardBounds: economy.RewardBounds{
			Scale: cfg.Economy.Scale,
			Min:   cfg.Economy.MinReward,
			Max:   cfg.Economy.MaxReward,
		},
		AutoPenalty: cfg.Verifier.AutoPenalty,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create market service: %w", err)
	}

	registry, err := buildVerifierRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	verifier, err := service.NewVerificationService(service.VerificationServiceOptions{
		Jobs:         repos.Store,
		Recorder:     market,
		Registry:     registry,
		Notifier:     notifier,
		Concurrency:  cfg.Verifier.Concurrency,
		Timeout:      cfg.Verifier.Timeout,
		PollInterval: cfg.Verifier.PollInterval,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create verification service: %w", err)
	}

	redoEscalator, err := service.NewRedoEscalator(service.RedoEscalatorOptions{
		Market: market,
		Policy: redo.Policy{Cap: cfg.Market.RedoCap, ExpectedExecutor: cfg.Market.ExpectedExecutor},
		Markers: core.NewMarkerService(core.MarkerServiceOptions{
			Store:  repos.Marks,
			Prefix: cfg.Redis.MarkPrefix,
			TTL:    cfg.Redis.MarkTTL,
		}),
		Notes:       repos.Notes,
		Broadcaster: broadcaster,
		Notifier:    notifier,
		Interval:    cfg.Market.RedoInterval,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create redo escalator: %w", err)
	}

	return &ServiceContainer{
		Market:        market,
		Ledger:        ledger,
		Verifier:      verifier,
		Redo:          redoEscalator,
		Notes:         repos.Notes,
		Auth:          BuildAuthService(ctx, AuthConfig{Auth: cfg.Auth, IsDev: cfg.IsDev, Logger: logger}),
		Notifier:      notifier,
		Broadcaster:   broadcaster,
		Readiness:     readinessChecks(deps.DB, repos.Marks),
		Observability: observability,
		closers:       closers,
	}, nil
}

func readinessChecks(db *sql.DB, marks core.MarkStore) []httpx.ReadinessCheck {
	var checks []httpx.ReadinessCheck
	if db != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "postgres", Check: db.PingContext})
	}
	if marks != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "redis", Check: marks.Ping})
	}
	return checks
}

// ReplayOnBoot rebuilds the read model from the durable log when configured.
func ReplayOnBoot(ctx context.Context, cfg *config.AppConfig, svcs *ServiceContainer, logger *slog.Logger) error {
	if cfg == nil || svcs == nil || !cfg.Storage.ReplayOnBoot {
		return nil
	}
	jobs, err := svcs.Market.Replay(ctx)
	if err != nil {
		return fmt.Errorf("replay job log: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "read model rebuilt from job log", "jobs", jobs)
	}
	return nil
}
