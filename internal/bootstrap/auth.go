package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/target/filetrack-api/config"
	"github.com/target/filetrack-api/internal/adapters/devauth"
	"github.com/target/filetrack-api/internal/adapters/oidc"
	"github.com/target/filetrack-api/internal/ports"
)

// BuildAuthenticator creates the bearer token authenticator for the configured auth mode.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildAuthenticator(ctx context.Context, cfg config.AuthConfig, logger *slog.Logger) (ports.Authenticator, error) {
	switch cfg.Mode {
	case config.AuthModeOIDC:
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			IssuerURL:        cfg.OIDC.IssuerURL,
			ClientID:         cfg.OIDC.ClientID,
			UserInfoFallback: cfg.OIDC.UserInfoFallback,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	case config.AuthModeNone:
		prov, err := devauth.NewProvider(devauth.Config{
			AuthorID: cfg.Dev.AuthorID,
			Email:    cfg.Dev.Email,
			Token:    cfg.Dev.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		if logger != nil {
			logger.WarnContext(ctx, "authentication disabled; requests are attributed to the dev author",
				"author", cfg.Dev.AuthorID, "token_required", cfg.Dev.Token != "")
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}
