// Package devauth provides a config-driven Authenticator for local development.
package devauth

import (
	"context"
	"crypto/subtle"
	"errors"

	domainauth "github.com/target/filetrack-api/internal/domain/auth"
	"github.com/target/filetrack-api/internal/ports"
)

// Config controls the dev authenticator behavior.
// AuthorID is required. When Token is set, requests must present it as their bearer token.
type Config struct {
	AuthorID string
	Email    string
	Token    string
}

// Provider implements ports.Authenticator for local development.
// Every accepted request is attributed to the configured author.
type Provider struct {
	identity domainauth.Identity
	token    []byte
}

var _ ports.Authenticator = (*Provider)(nil)

// NewProvider constructs a dev authenticator from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.AuthorID == "" {
		return nil, errors.New("dev auth: AuthorID is required")
	}
	return &Provider{
		identity: domainauth.Identity{AuthorID: cfg.AuthorID, Email: cfg.Email, Name: cfg.AuthorID},
		token:    []byte(cfg.Token),
	}, nil
}

// Authenticate returns the configured identity, checking the shared token when one is configured.
func (p *Provider) Authenticate(_ context.Context, bearerToken string) (domainauth.Identity, error) {
	if len(p.token) > 0 && subtle.ConstantTimeCompare(p.token, []byte(bearerToken)) != 1 {
		return domainauth.Identity{}, domainauth.ErrUnauthenticated
	}
	return p.identity, nil
}
