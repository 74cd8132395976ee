package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/ldi/sitesafe/internal/db"
	"github.com/ldi/sitesafe/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	return New(database)
}

func TestHashPassword(t *testing.T) {
	// SHA-256 of "secret", hex-encoded.
	want := "2bb80d537b1da3e38bd30361aa855686bde0eacd7162fef6a25fe97bf527a25b"
	if got := HashPassword("secret"); got != want {
		t.Errorf("HashPassword(\"secret\") = %s, want %s", got, want)
	}

	if HashPassword("a") == HashPassword("b") {
		t.Error("Expected distinct digests for distinct inputs")
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "dana", "secret", models.RoleWorker)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if u.ID == 0 {
		t.Error("Expected user ID to be set")
	}

	got, err := s.Authenticate(ctx, "dana", "secret")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Errorf("Expected user %d, got %+v", u.ID, got)
	}

	wrong, err := s.Authenticate(ctx, "dana", "not-the-password")
	if err != nil {
		t.Fatalf("Unexpected error for wrong password: %v", err)
	}
	if wrong != nil {
		t.Error("Expected nil for wrong password")
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "secret", models.RoleWorker); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty username, got %v", err)
	}
	if _, err := s.Register(ctx, "dana", "", models.RoleWorker); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty password, got %v", err)
	}
	if _, err := s.Register(ctx, "dana", "secret", models.Role("admin")); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown role, got %v", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "dana", "secret", models.RoleWorker); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := s.Register(ctx, "dana", "other", models.RoleManager); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}

func TestListWorkers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "dana", "secret", models.RoleWorker); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := s.Register(ctx, "sam", "secret", models.RoleManager); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	workers, err := s.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("ListWorkers failed: %v", err)
	}
	if len(workers) != 1 || workers[0].Username != "dana" {
		t.Errorf("Expected only the worker, got %+v", workers)
	}
}
