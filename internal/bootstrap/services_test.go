package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/config"
	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data"
)

func TestBuildRepositories(t *testing.T) {
	t.Parallel()
	db := &sql.DB{}

	repos := buildRepositories(db, nil, config.RedisConfig{})
	assert.Nil(t, repos.Cache)
	assert.IsType(t, core.NoopLocker{}, repos.Locker)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	repos = buildRepositories(db, client, config.RedisConfig{JobLockTTL: time.Minute})
	assert.IsType(t, &data.RedisCacheRepo{}, repos.Cache)
	assert.IsType(t, &data.RedisJobLocker{}, repos.Locker)
}

func TestBuildMetricsSink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	assert.Nil(t, buildMetricsSink(ctx, config.ObservabilityMetricsConfig{}, logger))
	assert.Nil(t, sinkOrNil(nil))

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	client := buildMetricsSink(ctx, config.ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: pc.LocalAddr().String(),
		Prefix:        "filetrack",
	}, logger)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })
	assert.NotNil(t, sinkOrNil(client))

	client.Count("job.operation", 1, nil)
	client.Flush()
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "filetrack.job.operation:1|c", string(buf[:n]))
}

func TestNewServices_RequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewServices(context.Background(), nil)
	require.Error(t, err)
	_, err = NewServices(context.Background(), &ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
}

func TestNewServices_SweeperOnly(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	cfg := &config.AppConfig{
		Services: "sweeper",
		Auth:     config.AuthConfig{Mode: config.AuthModeOIDC},
		Blob:     config.BlobConfig{Backend: config.BlobBackendLocal, LocalRoot: filepath.Join(base, "blobs")},
		Scratch:  config.ScratchConfig{Dir: filepath.Join(base, "scratch"), SweepSchedule: "@every 1m", MaxAge: time.Hour},
	}

	svcs, err := NewServices(context.Background(), &ServiceDeps{
		Config: cfg,
		DB:     &sql.DB{},
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svcs.Close() })

	assert.NotNil(t, svcs.Jobs)
	assert.NotNil(t, svcs.Settings)
	assert.NotNil(t, svcs.Sweeper)
	assert.Nil(t, svcs.Auth, "sweeper-only processes do not authenticate")
	assert.DirExists(t, svcs.Scratch.Root())
}

func TestNewServices_ToolModeLeavesScratchAndSkipsAuth(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	scratchDir := filepath.Join(base, "scratch")
	require.NoError(t, os.MkdirAll(scratchDir, 0o755))
	inFlight := filepath.Join(scratchDir, "job-7.zip")
	require.NoError(t, os.WriteFile(inFlight, []byte("zip"), 0o600))

	cfg := &config.AppConfig{
		Services: "http",
		Auth:     config.AuthConfig{Mode: config.AuthModeOIDC, OIDC: config.OIDCConfig{IssuerURL: "http://127.0.0.1:1"}},
		Blob:     config.BlobConfig{Backend: config.BlobBackendLocal, LocalRoot: filepath.Join(base, "blobs")},
		Scratch:  config.ScratchConfig{Dir: scratchDir},
	}
	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, DB: &sql.DB{}, ToolMode: true})
	require.NoError(t, err)

	assert.Nil(t, svcs.Auth)
	assert.FileExists(t, inFlight)
}
