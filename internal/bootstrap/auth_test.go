package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/config"
	domainauth "github.com/target/filetrack-api/internal/domain/auth"
)

func TestBuildAuthenticator_None(t *testing.T) {
	t.Parallel()
	auth, err := BuildAuthenticator(context.Background(), config.AuthConfig{
		Mode: config.AuthModeNone,
		Dev:  config.DevAuthConfig{AuthorID: "local-dev", Email: "dev@example.com", Token: "secret"},
	}, nil)
	require.NoError(t, err)

	id, err := auth.Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "local-dev", id.AuthorID)

	_, err = auth.Authenticate(context.Background(), "wrong")
	require.ErrorIs(t, err, domainauth.ErrUnauthenticated)
}

func TestBuildAuthenticator_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := BuildAuthenticator(ctx, config.AuthConfig{Mode: "saml"}, nil)
	require.ErrorContains(t, err, "unsupported auth mode")

	_, err = BuildAuthenticator(ctx, config.AuthConfig{Mode: config.AuthModeNone}, nil)
	require.Error(t, err)

	issuer := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(issuer.Close)
	_, err = BuildAuthenticator(ctx, config.AuthConfig{
		Mode: config.AuthModeOIDC,
		OIDC: config.OIDCConfig{IssuerURL: issuer.URL, ClientID: "filetrack"},
	}, nil)
	require.ErrorContains(t, err, "oidc provider")
}
