package devauth

import (
	"context"
	"errors"
	"testing"

	domainauth "github.com/target/filetrack-api/internal/domain/auth"
)

func TestProvider_AcceptsAnyRequestWithoutToken(t *testing.T) {
	prov, err := NewProvider(Config{AuthorID: "dev-user", Email: "dev@example.com"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	for _, token := range []string{"", "anything"} {
		id, err := prov.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate(%q) error: %v", token, err)
		}
		if id.AuthorID != "dev-user" || id.Email != "dev@example.com" {
			t.Fatalf("unexpected identity: %+v", id)
		}
	}
}

func TestProvider_SharedToken(t *testing.T) {
	prov, err := NewProvider(Config{AuthorID: "dev-user", Token: "s3cret"})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	if _, err := prov.Authenticate(context.Background(), "s3cret"); err != nil {
		t.Fatalf("expected matching token to pass: %v", err)
	}
	for _, token := range []string{"", "wrong"} {
		if _, err := prov.Authenticate(context.Background(), token); !errors.Is(err, domainauth.ErrUnauthenticated) {
			t.Fatalf("Authenticate(%q) = %v, want ErrUnauthenticated", token, err)
		}
	}
}

func TestNewProvider_RequiresAuthor(t *testing.T) {
	if _, err := NewProvider(Config{}); err == nil {
		t.Fatal("expected error for missing AuthorID")
	}
}
