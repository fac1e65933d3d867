// Package auth contains domain-level types for request authentication.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"errors"
	"strings"
)

// ErrUnauthenticated is returned when a request carries no usable credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the authenticated principal behind a request.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	AuthorID string // stable user identifier recorded on jobs (samAccountName, preferred_username or sub)
	Email    string
	Name     string
}

// Valid reports whether the identity can be recorded as a job author.
func (i Identity) Valid() bool { return strings.TrimSpace(i.AuthorID) != "" }

// BearerToken extracts the token from an Authorization header value.
// The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
