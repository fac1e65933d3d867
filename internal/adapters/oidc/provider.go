// Package oidc authenticates API requests by verifying OIDC bearer tokens.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/target/filetrack-api/internal/domain/auth"
	"github.com/target/filetrack-api/internal/ports"
)

// ProviderConfig holds configuration for the OIDC token verifier.
type ProviderConfig struct {
	// IssuerURL may also be given as the full discovery document URL.
	IssuerURL string
	ClientID  string
	// UserInfoFallback asks the userinfo endpoint for identity fields missing from the token.
	UserInfoFallback bool
	HTTPClient       *http.Client // Optional, defaults to a client with a 30s timeout
}

// Provider verifies bearer tokens issued by an OIDC provider and maps their claims to an identity.
type Provider struct {
	oidcProvider     *gooidc.Provider
	verifier         *gooidc.IDTokenVerifier
	httpClient       *http.Client
	userInfoFallback bool
}

var _ ports.Authenticator = (*Provider)(nil)

// NewProvider fetches the issuer's discovery document and builds a verifier for ClientID.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromURL(config.IssuerURL))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return &Provider{
		oidcProvider:     op,
		verifier:         op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		httpClient:       httpClient,
		userInfoFallback: config.UserInfoFallback,
	}, nil
}

func issuerFromURL(raw string) string {
	issuer := strings.TrimSuffix(raw, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, "/")
}

// Authenticate verifies the token's signature, issuer, audience and expiry.
func (p *Provider) Authenticate(ctx context.Context, bearerToken string) (domainauth.Identity, error) {
	if bearerToken == "" {
		return domainauth.Identity{}, domainauth.ErrUnauthenticated
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	idTok, err := p.verifier.Verify(ctx, bearerToken)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: verify token: %w", domainauth.ErrUnauthenticated, err)
	}
	var claims tokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Identity{}, fmt.Errorf("%w: parse token claims: %w", domainauth.ErrUnauthenticated, claimsErr)
	}
	id := mapClaims(claims)

	if p.userInfoFallback && (id.AuthorID == "" || id.Email == "") {
		if fillErr := p.fillFromUserInfo(ctx, bearerToken, &id); fillErr != nil {
			return domainauth.Identity{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if !id.Valid() {
		return domainauth.Identity{}, fmt.Errorf("%w: token has no usable subject", domainauth.ErrUnauthenticated)
	}
	return id, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, id *domainauth.Identity) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims tokenClaims
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fill := mapClaims(claims)
	if id.AuthorID == "" {
		id.AuthorID = fill.AuthorID
	}
	if id.Email == "" {
		id.Email = fill.Email
	}
	if id.Name == "" {
		id.Name = fill.Name
	}
	return nil
}

// tokenClaims covers both standard OIDC claims and the AD/ADFS shape.
type tokenClaims struct {
	Sub               string `json:"sub"`
	SamAccountName    string `json:"samaccountname"`
	PreferredUsername string `json:"preferred_username"`
	Mail              string `json:"mail"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	FirstName         string `json:"firstname"`
	LastName          string `json:"lastname"`
}

// mapClaims prefers the AD account name, then preferred_username, then sub for the author id.
func mapClaims(c tokenClaims) domainauth.Identity {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	return domainauth.Identity{
		AuthorID: firstNonEmpty(c.SamAccountName, c.PreferredUsername, c.Sub),
		Email:    firstNonEmpty(c.Mail, c.Email),
		Name:     name,
	}
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
