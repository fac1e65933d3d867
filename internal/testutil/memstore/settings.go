package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data"
	"github.com/target/filetrack-api/internal/domain/model"
)

// Settings is an in-memory core.SettingsRepository.
type Settings struct {
	mu     sync.Mutex
	tags   []model.Tag
	schema []model.PathMember
	Reads  int
}

var _ core.SettingsRepository = (*Settings)(nil)

// NewSettings returns a store seeded with tags and schema.
func NewSettings(tags []model.Tag, schema []model.PathMember) *Settings {
	return &Settings{tags: slices.Clone(tags), schema: slices.Clone(schema)}
}

// ListTags implements core.SettingsReader.
func (s *Settings) ListTags(context.Context) ([]model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	return slices.Clone(s.tags), nil
}

// GetPathSchema implements core.SettingsReader.
func (s *Settings) GetPathSchema(context.Context) ([]model.PathMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Reads++
	out := slices.Clone(s.schema)
	slices.SortFunc(out, func(a, b model.PathMember) int { return a.Order - b.Order })
	return out, nil
}

// GetTag implements core.SettingsRepository.
func (s *Settings) GetTag(_ context.Context, id string) (*model.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tags {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, data.ErrTagNotFound
}

// ApplyTagChanges implements core.SettingsRepository.
func (s *Settings) ApplyTagChanges(_ context.Context, changes model.TagChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range changes.Delete {
		if slices.ContainsFunc(s.schema, func(m model.PathMember) bool { return m.ID == d.ID }) {
			return data.ErrTagInUse
		}
	}
	s.tags = slices.DeleteFunc(s.tags, func(t model.Tag) bool {
		return slices.ContainsFunc(changes.Delete, func(d model.Tag) bool { return d.ID == t.ID })
	})
	for _, u := range changes.Update {
		for i := range s.tags {
			if s.tags[i].ID == u.ID {
				s.tags[i] = u
			}
		}
	}
	s.tags = append(s.tags, changes.Add...)
	return nil
}

// ReplacePathSchema implements core.SettingsRepository.
func (s *Settings) ReplacePathSchema(_ context.Context, members []model.PathMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range members {
		if !slices.ContainsFunc(s.tags, func(t model.Tag) bool { return t.ID == m.ID }) {
			return data.ErrUnknownPathTag
		}
	}
	s.schema = slices.Clone(members)
	return nil
}
