package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// BlobBackend selects where job files are stored.
type BlobBackend string

const (
	// BlobBackendAzure stores files in an Azure Blob Storage container.
	BlobBackendAzure BlobBackend = "azure"
	// BlobBackendLocal stores files under a local directory.
	BlobBackendLocal BlobBackend = "local"
)

// UnmarshalText implements encoding.TextUnmarshaler for BlobBackend.
func (b *BlobBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "azure", "local":
		*b = BlobBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid BlobBackend: %q (valid options: azure, local)", v)
	}
}

// BlobConfig contains blob store configuration.
type BlobConfig struct {
	Backend BlobBackend `env:"BACKEND" envDefault:"local"`

	ConnectionString string `env:"CONNECTION_STRING"`
	Container        string `env:"CONTAINER"        envDefault:"filetrack"`
	CreateContainer  bool   `env:"CREATE_CONTAINER" envDefault:"false"`

	LocalRoot    string `env:"LOCAL_ROOT"     envDefault:"./data/blobs"`
	LocalBaseURL string `env:"LOCAL_BASE_URL" envDefault:""`
}

// Sanitize trims string settings.
func (c *BlobConfig) Sanitize() {
	c.ConnectionString = strings.TrimSpace(c.ConnectionString)
	c.Container = strings.TrimSpace(c.Container)
	c.LocalRoot = strings.TrimSpace(c.LocalRoot)
	c.LocalBaseURL = strings.TrimRight(strings.TrimSpace(c.LocalBaseURL), "/")
}

// Validate checks that the selected backend is fully configured.
func (c *BlobConfig) Validate() error {
	switch c.Backend {
	case BlobBackendAzure:
		if c.ConnectionString == "" {
			return errors.New("BLOB_CONNECTION_STRING is required when BLOB_BACKEND=azure")
		}
		if c.Container == "" {
			return errors.New("BLOB_CONTAINER is required when BLOB_BACKEND=azure")
		}
	case BlobBackendLocal:
		if c.LocalRoot == "" {
			return errors.New("BLOB_LOCAL_ROOT is required when BLOB_BACKEND=local")
		}
	default:
		return fmt.Errorf("invalid BlobBackend: %q", c.Backend)
	}
	return nil
}

// ScratchConfig controls the download scratch directory and its sweeper.
type ScratchConfig struct {
	Dir string `env:"DIR" envDefault:"./data/scratch"`
	// MaxAge is how long an archive or job directory may stay before the sweeper removes it.
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"1h"`
	// SweepSchedule is a standard cron spec or descriptor such as "@every 15m".
	SweepSchedule       string `env:"SWEEP_SCHEDULE"       envDefault:"@every 15m"`
	DownloadConcurrency int    `env:"DOWNLOAD_CONCURRENCY" envDefault:"4"`
}

// Sanitize restores defaults for out-of-range values. An unparsable schedule falls back to the default.
func (c *ScratchConfig) Sanitize() {
	c.Dir = strings.TrimSpace(c.Dir)
	if c.Dir == "" {
		c.Dir = "./data/scratch"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = time.Hour
	}
	c.SweepSchedule = strings.TrimSpace(c.SweepSchedule)
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		c.SweepSchedule = "@every 15m"
	}
	if c.DownloadConcurrency < 1 {
		c.DownloadConcurrency = 1
	}
}
