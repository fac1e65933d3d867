package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/domain/model"
	apperrors "github.com/target/filetrack-api/internal/errors"
)

const (
	settingsTagsCacheKey = "settings:tags"
	settingsPathCacheKey = "settings:path"

	defaultSettingsCacheTTL = 5 * time.Minute
)

// SettingsServiceOptions groups dependencies for SettingsService.
type SettingsServiceOptions struct {
	Repo     core.SettingsRepository // Required
	Cache    core.CacheRepository    // Optional: read-through cache for tags and the path schema
	CacheTTL time.Duration           // Optional: defaults to 5m
	Logger   *slog.Logger            // Optional
}

// SettingsService manages the tag vocabulary and the path schema.
type SettingsService struct {
	repo   core.SettingsRepository
	cache  core.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

var _ core.SettingsReader = (*SettingsService)(nil)

// NewSettingsService constructs a SettingsService.
func NewSettingsService(opts SettingsServiceOptions) (*SettingsService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SettingsRepository is required")
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultSettingsCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SettingsService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		ttl:    ttl,
		logger: logger.With("component", "settings_service"),
	}, nil
}

// MustNewSettingsService constructs a SettingsService and panics on error.
func MustNewSettingsService(opts SettingsServiceOptions) *SettingsService {
	svc, err := NewSettingsService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SettingsService: %v", err))
	}
	return svc
}

// ListTags returns all tags.
func (s *SettingsService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return cached(ctx, s, settingsTagsCacheKey, s.repo.ListTags)
}

// GetPathSchema returns the path schema ordered by position.
func (s *SettingsService) GetPathSchema(ctx context.Context) ([]model.PathMember, error) {
	return cached(ctx, s, settingsPathCacheKey, s.repo.GetPathSchema)
}

// UpdateTags makes the stored tags equal to tags. Tags referenced by the path schema cannot be removed.
func (s *SettingsService) UpdateTags(ctx context.Context, tags []model.Tag) (model.TagChanges, error) {
	seen := make(map[string]struct{}, len(tags))
	for i := range tags {
		if err := tags[i].Validate(); err != nil {
			return model.TagChanges{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid tag")
		}
		if _, dup := seen[tags[i].ID]; dup {
			return model.TagChanges{}, apperrors.Validationf("duplicate tag %q", tags[i].ID)
		}
		seen[tags[i].ID] = struct{}{}
	}

	current, err := s.repo.ListTags(ctx)
	if err != nil {
		return model.TagChanges{}, fmt.Errorf("list tags: %w", err)
	}
	changes := model.DiffTags(current, tags)
	if changes.Empty() {
		return changes, nil
	}

	if len(changes.Delete) > 0 {
		schema, schemaErr := s.repo.GetPathSchema(ctx)
		if schemaErr != nil {
			return model.TagChanges{}, fmt.Errorf("get path schema: %w", schemaErr)
		}
		inPath := make(map[string]struct{}, len(schema))
		for _, m := range schema {
			inPath[m.ID] = struct{}{}
		}
		for _, t := range changes.Delete {
			if _, ok := inPath[t.ID]; ok {
				return model.TagChanges{}, apperrors.Conflictf("tag %q is part of the path schema", t.ID)
			}
		}
	}

	if err := s.repo.ApplyTagChanges(ctx, changes); err != nil {
		return model.TagChanges{}, fmt.Errorf("apply tag changes: %w", err)
	}
	s.invalidate(ctx, settingsTagsCacheKey)
	s.logger.InfoContext(ctx, "tags updated",
		"added", len(changes.Add),
		"updated", len(changes.Update),
		"deleted", len(changes.Delete),
	)
	return changes, nil
}

// UpdatePath replaces the path schema. Every member must reference an existing tag.
// Existing blobs are not moved; new paths apply to later uploads and renames.
func (s *SettingsService) UpdatePath(ctx context.Context, members []model.PathMember) error {
	if err := model.ValidatePathSchema(members); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid path schema")
	}
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return fmt.Errorf("list tags: %w", err)
	}
	known := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		known[t.ID] = struct{}{}
	}
	for _, m := range members {
		if _, ok := known[m.ID]; !ok {
			return apperrors.Validationf("path member %q is not a known tag", m.ID)
		}
	}

	if err := s.repo.ReplacePathSchema(ctx, members); err != nil {
		return fmt.Errorf("replace path schema: %w", err)
	}
	s.invalidate(ctx, settingsPathCacheKey)
	s.logger.InfoContext(ctx, "path schema updated", "members", len(members))
	return nil
}

func cached[T any](
	ctx context.Context,
	s *SettingsService,
	key string,
	load func(context.Context) ([]T, error),
) ([]T, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "settings cache read failed", "key", key, "error", err)
		} else if raw != nil {
			var out []T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
			s.logger.WarnContext(ctx, "discarding undecodable settings cache entry", "key", key)
		}
	}

	out, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			if setErr := s.cache.Set(ctx, key, raw, s.ttl); setErr != nil {
				s.logger.WarnContext(ctx, "settings cache write failed", "key", key, "error", setErr)
			}
		}
	}
	return out, nil
}

func (s *SettingsService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WarnContext(ctx, "settings cache invalidation failed", "keys", keys, "error", err)
	}
}
