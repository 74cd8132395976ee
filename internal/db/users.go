package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ldi/sitesafe/pkg/models"
)

// CreateUser inserts a new user row with an already-hashed password. The
// generated id is written back to u. The username is schema-unique, so a
// duplicate registration fails with a constraint error.
func (db *DB) CreateUser(ctx context.Context, u *models.User, passwordHash string) error {
	query := `
		INSERT INTO users (username, password, role)
		VALUES (?, ?, ?)
		RETURNING id
	`
	db.writeMu.Lock()
	err := db.QueryRowContext(ctx, query, u.Username, passwordHash, u.Role).Scan(&u.ID)
	db.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetUser retrieves a user by its ID. Returns (nil, nil) if no row exists.
func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, role FROM users WHERE id = ?`

	u := &models.User{}
	err := db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetUserByCredentials resolves a user from username and hashed password.
// Returns (nil, nil) when the credentials match no row.
func (db *DB) GetUserByCredentials(ctx context.Context, username, passwordHash string) (*models.User, error) {
	query := `SELECT id, username, role FROM users WHERE username = ? AND password = ?`

	u := &models.User{}
	err := db.QueryRowContext(ctx, query, username, passwordHash).Scan(&u.ID, &u.Username, &u.Role)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by credentials: %w", err)
	}

	return u, nil
}

// ListWorkers returns all users with the worker role.
func (db *DB) ListWorkers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT id, username, role FROM users WHERE role = ? ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query, models.RoleWorker)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return workers, nil
}
