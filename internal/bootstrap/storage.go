package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/filetrack-api/config"
	"github.com/target/filetrack-api/internal/adapters/blobstore"
	"github.com/target/filetrack-api/internal/adapters/scratch"
	"github.com/target/filetrack-api/internal/core"
)

// HealthCheckedBlobStore is a blob store that can report its own reachability.
type HealthCheckedBlobStore interface {
	core.BlobStore
	Health(ctx context.Context) error
}

// BuildBlobStore selects the blob backend named by cfg.Backend.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildBlobStore(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (HealthCheckedBlobStore, error) {
	switch cfg.Backend {
	case config.BlobBackendAzure:
		store, err := blobstore.NewAzureStore(ctx, blobstore.AzureStoreOptions{
			ConnectionString: cfg.ConnectionString,
			Container:        cfg.Container,
			CreateContainer:  cfg.CreateContainer,
			Logger:           logger,
		})
		if err != nil {
			return nil, fmt.Errorf("azure blob store: %w", err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "blob store ready", "backend", cfg.Backend, "container", cfg.Container)
		}
		return store, nil
	case config.BlobBackendLocal:
		store, err := blobstore.NewLocalStore(cfg.LocalRoot, cfg.LocalBaseURL)
		if err != nil {
			return nil, fmt.Errorf("local blob store: %w", err)
		}
		if logger != nil {
			logger.InfoContext(ctx, "blob store ready", "backend", cfg.Backend, "root", store.Root)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported blob backend %q", cfg.Backend)
	}
}

// BuildScratchStore opens the scratch directory. With reset set it also clears whatever a previous
// process left behind.
func BuildScratchStore(cfg config.ScratchConfig, reset bool, logger *slog.Logger) (*scratch.Store, error) {
	store, err := scratch.New(cfg.Dir)
	if err != nil {
		return nil, err
	}
	if !reset {
		return store, nil
	}
	if err := store.Reset(); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("scratch directory reset", "dir", store.Root())
	}
	return store, nil
}
