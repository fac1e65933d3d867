package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/service"
)

// SettingsHandlers serves tag and path schema administration.
type SettingsHandlers struct {
	Svc    *service.SettingsService
	Logger *slog.Logger
}

func (h *SettingsHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// ListTags returns every tag.
func (h *SettingsHandlers) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Svc.ListTags(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger(), "list_tags", err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	WriteJSON(w, http.StatusOK, tags)
}

// UpdateTags replaces the tag set and returns the applied diff.
func (h *SettingsHandlers) UpdateTags(w http.ResponseWriter, r *http.Request) {
	var tags []model.Tag
	if !DecodeJSON(w, r, &tags) {
		return
	}
	changes, err := h.Svc.UpdateTags(r.Context(), tags)
	if err != nil {
		WriteServiceError(w, r, h.logger(), "update_tags", err)
		return
	}
	WriteJSON(w, http.StatusOK, changes)
}

// GetPath returns the path schema ordered by position.
func (h *SettingsHandlers) GetPath(w http.ResponseWriter, r *http.Request) {
	members, err := h.Svc.GetPathSchema(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.logger(), "get_path", err)
		return
	}
	if members == nil {
		members = []model.PathMember{}
	}
	WriteJSON(w, http.StatusOK, members)
}

// UpdatePath replaces the path schema.
func (h *SettingsHandlers) UpdatePath(w http.ResponseWriter, r *http.Request) {
	var members []model.PathMember
	if !DecodeJSON(w, r, &members) {
		return
	}
	if err := h.Svc.UpdatePath(r.Context(), members); err != nil {
		WriteServiceError(w, r, h.logger(), "update_path", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
