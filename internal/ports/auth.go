// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; the HTTP middleware consumes them.
package ports

import (
	"context"

	domainauth "github.com/target/filetrack-api/internal/domain/auth"
)

// Authenticator resolves the bearer token of a request into an identity.
// Implementations return domainauth.ErrUnauthenticated (possibly wrapped) for rejected tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (domainauth.Identity, error)
}
