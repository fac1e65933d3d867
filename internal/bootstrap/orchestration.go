package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/filetrack-api/config"
)

// shutdownWaitTimeout is the maximum time to wait for background services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(
	ctx context.Context,
	logger *slog.Logger,
	errCh chan<- error,
	descriptor backgroundService,
) backgroundServiceHandle {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case errCh <- errMsg:
			case <-ctx.Done():
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()
	logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return backgroundServiceHandle{name: descriptor.name, done: done}
}

func buildBackgroundServices(cfg *ServiceOrchestrationConfig, enabled map[config.ServiceMode]bool) []backgroundService {
	var services []backgroundService
	if enabled[config.ServiceModeSweeper] && cfg.Services.Sweeper != nil {
		services = append(services, backgroundService{
			mode:  config.ServiceModeSweeper,
			name:  "scratch sweeper",
			start: cfg.Services.Sweeper.Run,
		})
	}
	return services
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// RunServicesWithShutdown starts the enabled services and blocks until ctx is cancelled,
// SIGINT or SIGTERM arrives, or a service fails.
func RunServicesWithShutdown(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	serviceCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	var server *http.Server
	if enabledServices[config.ServiceModeHTTP] {
		server, err = StartHTTPServer(serviceCtx, &HTTPServerConfig{
			Config:      cfg.Config,
			Services:    cfg.Services,
			DB:          cfg.DB,
			RedisClient: cfg.RedisClient,
			Logger:      logger,
		}, errCh)
		if err != nil {
			return err
		}
	}

	var handles []backgroundServiceHandle
	for _, svc := range buildBackgroundServices(cfg, enabledServices) {
		handles = append(handles, launchBackground(serviceCtx, logger, errCh, svc))
	}

	var runErr error
	select {
	case <-serviceCtx.Done():
		logger.Info("shutting down services...")
	case runErr = <-errCh:
		logger.Error("service error", "error", runErr)
	}
	cancel()

	if stopErr := gracefulStop(server, cfg.Config.HTTP.ShutdownTimeout, handles, logger); stopErr != nil {
		if runErr == nil {
			return stopErr
		}
		logger.Error("graceful stop failed", "error", stopErr)
	}
	return runErr
}

// gracefulStop drains the HTTP server and waits for background services to finish.
func gracefulStop(server *http.Server, timeout time.Duration, backgrounds []backgroundServiceHandle, logger *slog.Logger) error {
	var shutdownErr error
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		shutdownErr = ShutdownHTTPServer(shutdownCtx, server, logger)
	}

	for _, svc := range backgrounds {
		waitForService(svc.done, svc.name, logger)
	}
	return shutdownErr
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
