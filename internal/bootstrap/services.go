package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/filetrack-api/config"
	"github.com/target/filetrack-api/internal/adapters/scratch"
	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data"
	"github.com/target/filetrack-api/internal/observability/statsd"
	"github.com/target/filetrack-api/internal/ports"
	"github.com/target/filetrack-api/internal/service"
)

// ServiceContainer holds all application services and the adapters they share.
type ServiceContainer struct {
	Jobs     *service.JobService
	Settings *service.SettingsService
	Sweeper  *service.ScratchSweeper
	Auth     ports.Authenticator
	Blobs    HealthCheckedBlobStore
	Scratch  *scratch.Store
	Metrics  *statsd.Client
}

// Close releases resources owned by the container.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	return c.Metrics.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: enables the settings cache and distributed job locks
	Logger      *slog.Logger
	// ToolMode builds services for command-line tools that share storage with a running server:
	// the scratch directory is not reset and no authenticator is created.
	ToolMode bool
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs     *data.JobRepo
	Settings *data.SettingsRepo
	Cache    core.CacheRepository
	Locker   core.JobLocker
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, client redis.UniversalClient, cfg config.RedisConfig) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:     data.NewJobRepo(db),
		Settings: data.NewSettingsRepo(db),
		Locker:   core.NoopLocker{},
	}
	if client != nil {
		repos.Cache = data.NewRedisCacheRepo(client)
		repos.Locker = data.NewRedisJobLocker(client, cfg.JobLockTTL)
	}
	return repos
}

// buildMetricsSink returns a StatsD client, or nil when metrics are disabled or the sink cannot be reached.
func buildMetricsSink(ctx context.Context, cfg config.ObservabilityMetricsConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(ctx, statsd.Config{
		Address:       cfg.StatsdAddress,
		Prefix:        cfg.Prefix,
		GlobalTags:    cfg.Tags,
		FlushInterval: cfg.FlushInterval,
		Logger:        logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// sinkOrNil avoids handing services a typed nil inside the statsd.Sink interface.
//
//nolint:ireturn // services accept the Sink interface.
func sinkOrNil(c *statsd.Client) statsd.Sink {
	if c == nil {
		return nil
	}
	return c
}

// NewServices connects storage backends and constructs the job, settings and sweeper services.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("config and database are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, cfg.Redis)

	blobs, err := BuildBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	scratchStore, err := BuildScratchStore(cfg.Scratch, !deps.ToolMode, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("scratch store: %w", err)
	}
	// Only the HTTP API authenticates; a sweeper-only process never contacts the issuer.
	var auth ports.Authenticator
	if cfg.IsHTTPServerEnabled() && !deps.ToolMode {
		if auth, err = BuildAuthenticator(ctx, cfg.Auth, logger); err != nil {
			return ServiceContainer{}, err
		}
	}
	metricsClient := buildMetricsSink(ctx, cfg.Observability.Metrics, logger)
	sink := sinkOrNil(metricsClient)

	settings, err := service.NewSettingsService(service.SettingsServiceOptions{
		Repo:     repos.Settings,
		Cache:    repos.Cache,
		CacheTTL: cfg.Redis.SettingsCacheTTL,
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:                repos.Jobs,
		Blobs:               blobs,
		Scratch:             scratchStore,
		Settings:            settings,
		Locker:              repos.Locker,
		Logger:              logger,
		Metrics:             sink,
		DownloadConcurrency: cfg.Scratch.DownloadConcurrency,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	sweeper, err := service.NewScratchSweeper(service.ScratchSweeperOptions{
		Scratch:  scratchStore,
		Schedule: cfg.Scratch.SweepSchedule,
		MaxAge:   cfg.Scratch.MaxAge,
		Logger:   logger,
		Metrics:  sink,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Jobs:     jobs,
		Settings: settings,
		Sweeper:  sweeper,
		Auth:     auth,
		Blobs:    blobs,
		Scratch:  scratchStore,
		Metrics:  metricsClient,
	}, nil
}
