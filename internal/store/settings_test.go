package store

import (
	"context"
	"testing"

	"github.com/erazemk/holdfolio/internal/db"
)

func TestResolveJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := ResolveJWTSecret(ctx, database, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := ResolveJWTSecret(ctx, database, "")
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestResolveJWTSecret_PrefersConfigured(t *testing.T) {
	database := db.NewTestDB(t)

	secret, err := ResolveJWTSecret(context.Background(), database, "from-config")
	if err != nil {
		t.Fatal(err)
	}
	if secret != "from-config" {
		t.Errorf("expected configured secret, got %q", secret)
	}
}
