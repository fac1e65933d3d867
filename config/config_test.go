package config

import (
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - sweeper",
			input:    "sweeper",
			expected: map[ServiceMode]bool{ServiceModeSweeper: true},
		},
		{
			name:     "services with spaces and duplicates",
			input:    " http , sweeper , http ",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true, ServiceModeSweeper: true},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       " , ,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,indexer",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if got := cfg.HTTP.MaxUploadBytes(); got != 512<<20 {
		t.Errorf("MaxUploadBytes = %d", got)
	}
	if cfg.Blob.Backend != BlobBackendLocal {
		t.Errorf("Blob.Backend = %q", cfg.Blob.Backend)
	}
	if cfg.Scratch.SweepSchedule != "@every 15m" || cfg.Scratch.MaxAge != time.Hour {
		t.Errorf("unexpected scratch defaults: %+v", cfg.Scratch)
	}
	if cfg.Auth.Mode != AuthModeOIDC {
		t.Errorf("Auth.Mode = %q", cfg.Auth.Mode)
	}
	if !cfg.IsHTTPServerEnabled() || !cfg.IsSweeperEnabled() {
		t.Errorf("expected http and sweeper enabled by default")
	}
	if cfg.Redis.Enabled {
		t.Errorf("redis must be opt-in")
	}
}

func TestAppConfig_FromEnv(t *testing.T) {
	t.Setenv("SERVICE_MODE", "http")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("HTTP_MAX_CONNS", "64")
	t.Setenv("HTTP_MAX_UPLOAD_MB", "10")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_RUN_MIGRATIONS", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_URI", "redis://cache:6379/0")
	t.Setenv("REDIS_JOB_LOCK_TTL", "45s")
	t.Setenv("BLOB_BACKEND", "Azure")
	t.Setenv("BLOB_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("BLOB_CONTAINER", "jobs")
	t.Setenv("SCRATCH_DIR", "/var/tmp/filetrack")
	t.Setenv("SCRATCH_SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("SCRATCH_DOWNLOAD_CONCURRENCY", "8")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("AUTH_DEV_AUTHOR", "local-dev")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("STATSD_ADDR", "statsd:8125")
	t.Setenv("METRICS_PREFIX", ".filetrack.api.")
	t.Setenv("METRICS_TAGS", "env:stage,region:eu")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.MaxConns != 64 || cfg.HTTP.MaxUploadBytes() != 10<<20 {
		t.Errorf("unexpected HTTP config: %+v", cfg.HTTP)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.RunMigrations {
		t.Errorf("unexpected DB config: %+v", cfg.Postgres)
	}
	if !cfg.Redis.Enabled || cfg.Redis.JobLockTTL != 45*time.Second {
		t.Errorf("unexpected Redis config: %+v", cfg.Redis)
	}
	if cfg.Blob.Backend != BlobBackendAzure || cfg.Blob.Container != "jobs" {
		t.Errorf("unexpected Blob config: %+v", cfg.Blob)
	}
	if cfg.Scratch.SweepSchedule != "*/5 * * * *" || cfg.Scratch.DownloadConcurrency != 8 {
		t.Errorf("unexpected Scratch config: %+v", cfg.Scratch)
	}
	if cfg.Auth.Mode != AuthModeNone || cfg.Auth.Dev.AuthorID != "local-dev" {
		t.Errorf("unexpected Auth config: %+v", cfg.Auth)
	}
	if !cfg.Observability.Metrics.IsEnabled() || cfg.Observability.Metrics.Prefix != "filetrack.api" {
		t.Errorf("unexpected metrics config: %+v", cfg.Observability.Metrics)
	}
	if tags := cfg.Observability.Metrics.Tags; tags["env"] != "stage" || tags["region"] != "eu" {
		t.Errorf("unexpected metrics tags: %v", tags)
	}
	if cfg.IsSweeperEnabled() {
		t.Errorf("sweeper should be disabled")
	}
}

func TestAuthMode_Invalid(t *testing.T) {
	t.Setenv("AUTH_MODE", "oauth")
	var cfg AppConfig
	err := env.Parse(&cfg)
	if err == nil || !strings.Contains(err.Error(), "invalid AuthMode") {
		t.Fatalf("expected invalid AuthMode error, got %v", err)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	base := func() AppConfig {
		return AppConfig{
			Services: "http",
			Auth:     AuthConfig{Mode: AuthModeOIDC, OIDC: OIDCConfig{IssuerURL: "https://idp.example.com", ClientID: "filetrack"}},
			Blob:     BlobConfig{Backend: BlobBackendLocal, LocalRoot: "/srv/blobs"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*AppConfig) {}},
		{name: "oidc without issuer", mutate: func(c *AppConfig) { c.Auth.OIDC.IssuerURL = "" }, wantErr: "OIDC_ISSUER_URL"},
		{name: "dev auth without author", mutate: func(c *AppConfig) { c.Auth = AuthConfig{Mode: AuthModeNone} }, wantErr: "AUTH_DEV_AUTHOR"},
		{name: "azure without connection string", mutate: func(c *AppConfig) {
			c.Blob = BlobConfig{Backend: BlobBackendAzure, Container: "jobs"}
		}, wantErr: "BLOB_CONNECTION_STRING"},
		{name: "bad services", mutate: func(c *AppConfig) { c.Services = "reaper" }, wantErr: "invalid service name"},
		{name: "bad log level", mutate: func(c *AppConfig) { c.LogLevel = "loud" }, wantErr: "invalid LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScratchConfig_Sanitize(t *testing.T) {
	cfg := ScratchConfig{SweepSchedule: "every now and then", MaxAge: -time.Second, DownloadConcurrency: 0}
	cfg.Sanitize()

	if cfg.SweepSchedule != "@every 15m" {
		t.Errorf("SweepSchedule = %q", cfg.SweepSchedule)
	}
	if cfg.MaxAge != time.Hour || cfg.DownloadConcurrency != 1 || cfg.Dir == "" {
		t.Errorf("unexpected sanitized config: %+v", cfg)
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	cfg := DBConfig{MaxOpenConns: 0, MaxIdleConns: 10}
	cfg.Sanitize()
	if cfg.MaxOpenConns != 1 || cfg.MaxIdleConns != 1 {
		t.Errorf("unexpected pool settings: %+v", cfg)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " "}
	cfg.Sanitize()
	if cfg.Enabled || cfg.IsEnabled() {
		t.Fatalf("expected enabled to be false when address is empty")
	}
	if cfg.Prefix != "filetrack" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.FlushInterval != time.Second {
		t.Errorf("FlushInterval = %v", cfg.FlushInterval)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{"": slog.LevelInfo, "debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
}
