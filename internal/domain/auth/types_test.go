package auth

import "testing"

func TestIdentity_Valid(t *testing.T) {
	if !(Identity{AuthorID: "alice"}).Valid() {
		t.Fatalf("expected valid identity")
	}
	if (Identity{AuthorID: "  ", Email: "a@example.com"}).Valid() {
		t.Fatalf("blank author id must not be valid")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer   abc ", "abc", true},
		{"Basic dXNlcg==", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}
