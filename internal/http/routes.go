package httpx

import (
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/target/filetrack-api/internal/ports"
	"github.com/target/filetrack-api/internal/service"
)

// RouterServices groups what the router needs to build its handlers.
type RouterServices struct {
	Jobs           *service.JobService
	Settings       *service.SettingsService
	Auth           ports.Authenticator
	MaxUploadBytes int64
	HealthChecks   []HealthCheck
	Logger         *slog.Logger
}

// NewRouter builds the filetrack API. Health endpoints are public; everything under /api requires auth.
func NewRouter(svcs RouterServices) http.Handler {
	logger := svcs.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler) // also serves HEAD
	mux.Handle("GET /readyz", readyHandler(svcs.HealthChecks))

	api := http.NewServeMux()
	jobs := &JobHandlers{Svc: svcs.Jobs, MaxUploadBytes: svcs.MaxUploadBytes, Logger: logger}
	api.HandleFunc("POST /api/jobs", jobs.Create)
	api.HandleFunc("GET /api/jobs", jobs.List)
	api.HandleFunc("GET /api/jobs/{id}", jobs.Get)
	api.HandleFunc("PUT /api/jobs/{id}", jobs.Update)
	api.HandleFunc("DELETE /api/jobs/{id}", jobs.Delete)
	api.HandleFunc("POST /api/jobs/{id}/promote", jobs.Promote)
	api.HandleFunc("POST /api/jobs/{id}/revert", jobs.Revert)
	api.HandleFunc("GET /api/jobs/{id}/report", jobs.Report)
	api.HandleFunc("GET /api/jobs/{id}/download", jobs.Download)

	settings := &SettingsHandlers{Svc: svcs.Settings, Logger: logger}
	api.HandleFunc("GET /api/settings/tags", settings.ListTags)
	api.HandleFunc("PUT /api/settings/tags", settings.UpdateTags)
	api.HandleFunc("GET /api/settings/path", settings.GetPath)
	api.HandleFunc("PUT /api/settings/path", settings.UpdatePath)

	// Zip downloads are skipped by gzhttp's default content type filter.
	mux.Handle("/api/", gzhttp.GzipHandler(RequireAuth(svcs.Auth, logger)(api)))

	return Chain(mux, Recover(logger), Logging(logger))
}
