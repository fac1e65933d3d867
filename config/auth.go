package config

import (
	"errors"
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOIDC verifies bearer tokens against an OIDC issuer.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeNone attributes every request to the dev author (for development only).
	AuthModeNone AuthMode = "none"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oidc", "none":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, none)", v)
	}
}

// OIDCConfig contains bearer token verification settings.
type OIDCConfig struct {
	// IssuerURL also accepts the discovery document URL.
	IssuerURL        string `env:"ISSUER_URL"`
	ClientID         string `env:"CLIENT_ID"         envDefault:"filetrack"`
	UserInfoFallback bool   `env:"USERINFO_FALLBACK" envDefault:"false"`
}

// DevAuthConfig controls the identity used when AUTH_MODE=none.
type DevAuthConfig struct {
	AuthorID string `env:"AUTHOR" envDefault:"dev-user"`
	Email    string `env:"EMAIL"  envDefault:"dev@example.com"`
	// Token, when set, must be presented as the bearer token.
	Token string `env:"TOKEN"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// Dev configuration (used when Mode=none).
	Dev DevAuthConfig `envPrefix:"AUTH_DEV_"`
}

// Validate checks that the selected mode has what it needs.
func (c *AuthConfig) Validate() error {
	switch c.Mode {
	case AuthModeOIDC:
		if strings.TrimSpace(c.OIDC.IssuerURL) == "" {
			return errors.New("OIDC_ISSUER_URL is required when AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.OIDC.ClientID) == "" {
			return errors.New("OIDC_CLIENT_ID is required when AUTH_MODE=oidc")
		}
	case AuthModeNone:
		if strings.TrimSpace(c.Dev.AuthorID) == "" {
			return errors.New("AUTH_DEV_AUTHOR is required when AUTH_MODE=none")
		}
	default:
		return fmt.Errorf("invalid AuthMode: %q", c.Mode)
	}
	return nil
}
