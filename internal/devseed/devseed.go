// Package devseed loads a development tag vocabulary and path schema.
package devseed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/filetrack-api/internal/domain/model"
)

// SettingsManager is the part of the settings service seeding needs.
type SettingsManager interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetPathSchema(ctx context.Context) ([]model.PathMember, error)
	UpdateTags(ctx context.Context, tags []model.Tag) (model.TagChanges, error)
	UpdatePath(ctx context.Context, members []model.PathMember) error
}

// Options controls a seeding run.
type Options struct {
	// ReplacePath overwrites a non-empty path schema with the default one.
	ReplacePath bool
}

// DefaultTags is the development tag vocabulary.
func DefaultTags() []model.Tag {
	return []model.Tag{
		{ID: "customer", Name: "Customer", Mandatory: true},
		{ID: "year", Name: "Year", Mandatory: true},
		{ID: "project", Name: "Project"},
		{ID: "category", Name: "Category"},
		{ID: "reviewer", Name: "Reviewer"},
	}
}

// DefaultPathSchema stores files under <customer>/<year>/.
func DefaultPathSchema() []model.PathMember {
	return []model.PathMember{
		{ID: "customer", Order: 0},
		{ID: "year", Order: 1},
	}
}

// Result summarizes what a seeding run changed.
type Result struct {
	Tags        model.TagChanges
	PathUpdated bool
}

// Run adds missing default tags, keeping any tags that already exist, and installs the default path
// schema when none is configured.
func Run(ctx context.Context, svc SettingsManager, opts Options, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	current, err := svc.ListTags(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list tags: %w", err)
	}
	desired := mergeTags(current, DefaultTags())

	var res Result
	if res.Tags, err = svc.UpdateTags(ctx, desired); err != nil {
		return Result{}, fmt.Errorf("seed tags: %w", err)
	}
	logger.InfoContext(ctx, "seeded tags", "added", len(res.Tags.Add), "existing", len(current))

	schema, err := svc.GetPathSchema(ctx)
	if err != nil {
		return res, fmt.Errorf("get path schema: %w", err)
	}
	if len(schema) > 0 && !opts.ReplacePath {
		logger.InfoContext(ctx, "path schema already configured; leaving it unchanged", "members", len(schema))
		return res, nil
	}
	if err := svc.UpdatePath(ctx, DefaultPathSchema()); err != nil {
		return res, fmt.Errorf("seed path schema: %w", err)
	}
	res.PathUpdated = true
	logger.InfoContext(ctx, "seeded path schema", "members", len(DefaultPathSchema()))
	return res, nil
}

// mergeTags returns current plus every default whose id is not already present.
func mergeTags(current, defaults []model.Tag) []model.Tag {
	out := make([]model.Tag, 0, len(current)+len(defaults))
	have := make(map[string]struct{}, len(current))
	for _, t := range current {
		have[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, t := range defaults {
		if _, ok := have[t.ID]; !ok {
			out = append(out, t)
		}
	}
	return out
}
