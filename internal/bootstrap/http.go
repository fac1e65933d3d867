package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/net/netutil"

	"github.com/target/filetrack-api/config"
	httpx "github.com/target/filetrack-api/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// healthChecks lists the dependencies the readiness endpoint probes.
func healthChecks(db *sql.DB, client redis.UniversalClient, blobs HealthCheckedBlobStore) []httpx.HealthCheck {
	var checks []httpx.HealthCheck
	if db != nil {
		checks = append(checks, httpx.HealthCheck{Name: "database", Check: db.PingContext})
	}
	if blobs != nil {
		checks = append(checks, httpx.HealthCheck{Name: "blob_store", Check: blobs.Health})
	}
	if client != nil {
		checks = append(checks, httpx.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return checks
}

func buildHTTPHandler(cfg *HTTPServerConfig, logger *slog.Logger) http.Handler {
	return httpx.NewRouter(httpx.RouterServices{
		Jobs:           cfg.Services.Jobs,
		Settings:       cfg.Services.Settings,
		Auth:           cfg.Services.Auth,
		MaxUploadBytes: cfg.Config.HTTP.MaxUploadBytes(),
		HealthChecks:   healthChecks(cfg.DB, cfg.RedisClient, cfg.Services.Blobs),
		Logger:         logger,
	})
}

func newServer(handler http.Handler, hc config.HTTPConfig) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := hc.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: hc.ReadHeaderTimeout,
		WriteTimeout:      hc.WriteTimeout,
		IdleTimeout:       hc.IdleTimeout,
	}
}

// StartHTTPServer binds the listener and serves in the background. The returned server's Addr is the bound
// address. Serve errors other than a graceful close are sent to errCh.
func StartHTTPServer(ctx context.Context, cfg *HTTPServerConfig, errCh chan<- error) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := newServer(buildHTTPHandler(cfg, logger), cfg.Config.HTTP)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	server.Addr = ln.Addr().String()
	if maxConns := cfg.Config.HTTP.MaxConns; maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr, "max_conns", cfg.Config.HTTP.MaxConns)
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("http server: %w", serveErr):
			default:
				logger.ErrorContext(ctx, "HTTP server failed", "error", serveErr)
			}
		}
	}()

	return server, nil
}

// ShutdownHTTPServer gracefully shuts down the HTTP server, waiting for in-flight requests until ctx expires.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.InfoContext(ctx, "shutting down HTTP server")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}
