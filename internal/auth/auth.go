package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ldi/sitesafe/pkg/models"
)

// ErrValidation is returned for empty credentials or an unknown role.
var ErrValidation = errors.New("invalid input")

// Store is the subset of database operations the identity service needs.
type Store interface {
	CreateUser(ctx context.Context, u *models.User, passwordHash string) error
	GetUserByCredentials(ctx context.Context, username, passwordHash string) (*models.User, error)
	ListWorkers(ctx context.Context) ([]*models.User, error)
}

// Service resolves identities and registers users. Passwords are stored
// as SHA-256 hex digests; credential strength is out of scope here.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// HashPassword returns the SHA-256 hex digest of a plain-text password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Register creates a new user with the given role, fixed for the lifetime
// of the account. The username is unique; duplicate registrations fail
// with a constraint error from the store.
func (s *Service) Register(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password must not be empty: %w", ErrValidation)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("role must be %q or %q: %w", models.RoleManager, models.RoleWorker, ErrValidation)
	}

	u := &models.User{Username: username, Role: role}
	if err := s.store.CreateUser(ctx, u, HashPassword(password)); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate resolves a user from credentials. Returns (nil, nil) when
// the credentials match no account.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password must not be empty: %w", ErrValidation)
	}
	return s.store.GetUserByCredentials(ctx, username, HashPassword(password))
}

// ListWorkers returns the registered workers, for assignment pickers.
func (s *Service) ListWorkers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListWorkers(ctx)
}
