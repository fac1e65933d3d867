package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/observability/metrics"
	"github.com/target/filetrack-api/internal/observability/statsd"
)

const (
	defaultSweepSchedule = "@every 15m"
	defaultScratchMaxAge = time.Hour
)

// ScratchSweeperOptions groups dependencies for ScratchSweeper.
type ScratchSweeperOptions struct {
	Scratch  core.ScratchCleaner // Required
	Schedule string              // Optional: standard cron spec or descriptor, defaults to "@every 15m"
	MaxAge   time.Duration       // Optional: entries older than this are removed, defaults to 1h
	Logger   *slog.Logger        // Optional
	Metrics  statsd.Sink         // Optional
	Now      func() time.Time    // Optional: clock override for tests
}

// ScratchSweeper periodically removes stale job directories and archives from the scratch area.
type ScratchSweeper struct {
	scratch  core.ScratchCleaner
	schedule cron.Schedule
	spec     string
	maxAge   time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink
	now      func() time.Time
}

// NewScratchSweeper constructs a ScratchSweeper. The schedule is parsed eagerly.
func NewScratchSweeper(opts ScratchSweeperOptions) (*ScratchSweeper, error) {
	if opts.Scratch == nil {
		return nil, errors.New("ScratchCleaner is required")
	}
	spec := opts.Schedule
	if spec == "" {
		spec = defaultSweepSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = defaultScratchMaxAge
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &ScratchSweeper{
		scratch:  opts.Scratch,
		schedule: schedule,
		spec:     spec,
		maxAge:   maxAge,
		logger:   logger.With("component", "scratch_sweeper"),
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Run sweeps on the configured schedule until ctx is cancelled.
// Returns nil on graceful shutdown.
func (s *ScratchSweeper) Run(ctx context.Context) error {
	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "scratch sweep failed", "error", err)
		}
	}))
	s.logger.InfoContext(ctx, "starting scratch sweeper", "schedule", s.spec, "max_age", s.maxAge)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.InfoContext(ctx, "scratch sweeper stopped", "reason", ctx.Err())
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// SweepOnce removes scratch entries older than the configured max age.
func (s *ScratchSweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	removed, err := s.scratch.Sweep(cutoff)
	metrics.EmitScratchSweep(s.metrics, removed, err)
	if removed > 0 {
		s.logger.InfoContext(ctx, "removed stale scratch entries", "count", removed, "cutoff", cutoff)
	}
	if err != nil {
		return removed, fmt.Errorf("sweep scratch: %w", err)
	}
	return removed, nil
}
