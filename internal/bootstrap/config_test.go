package bootstrap

import (
	"context"
	"log/slog"
	"reflect"
	"testing"

	"github.com/target/filetrack-api/config"
)

func TestGetEnabledServices(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.AppConfig
		expected []string
	}{
		{name: "nil config", cfg: nil, expected: []string{}},
		{name: "invalid services", cfg: &config.AppConfig{Services: "reaper"}, expected: []string{}},
		{name: "sorted", cfg: &config.AppConfig{Services: "sweeper,http"}, expected: []string{"http", "sweeper"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetEnabledServices(tt.cfg); !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("GetEnabledServices() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidateServiceConfig(t *testing.T) {
	if err := ValidateServiceConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if err := ValidateServiceConfig(&config.AppConfig{Services: ""}); err == nil {
		t.Fatal("expected error for empty services")
	}
	if err := ValidateServiceConfig(&config.AppConfig{Services: "http"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := InitLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug logging to be enabled")
	}

	logger = InitLogger("nonsense")
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("unknown level should fall back to info")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info logging to be enabled")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("SERVICE_MODE", "http")
	t.Setenv("BLOB_BACKEND", "local")
	t.Setenv("HTTP_MAX_UPLOAD_MB", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTP.MaxUploadMB != 1 {
		t.Fatalf("expected sanitized upload limit, got %d", cfg.HTTP.MaxUploadMB)
	}

	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("OIDC_ISSUER_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error for oidc without issuer")
	}
}
