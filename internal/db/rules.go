package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ldi/sitesafe/pkg/models"
)

// CreateRule inserts a new rule row. The creation timestamp is set at
// insert time and never updated afterwards.
func (db *DB) CreateRule(ctx context.Context, r *models.Rule) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	query := `
		INSERT INTO rules (rule_text, timestamp)
		VALUES (?, ?)
		RETURNING id
	`
	db.writeMu.Lock()
	err := db.QueryRowContext(ctx, query, r.Text, r.Timestamp).Scan(&r.ID)
	db.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetRule retrieves a rule by its ID. Returns (nil, nil) if no row exists.
func (db *DB) GetRule(ctx context.Context, id int64) (*models.Rule, error) {
	query := `
		SELECT id, rule_text, feedback, timestamp
		FROM rules
		WHERE id = ?
	`
	r := &models.Rule{}
	err := db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Text, &r.Feedback, &r.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return r, nil
}

// ListRules returns all rules ordered by creation.
func (db *DB) ListRules(ctx context.Context) ([]*models.Rule, error) {
	query := `
		SELECT id, rule_text, feedback, timestamp
		FROM rules
		ORDER BY id ASC
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		r := &models.Rule{}
		if err := rows.Scan(&r.ID, &r.Text, &r.Feedback, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return rules, nil
}

// UpdateRuleFeedback overwrites the single feedback slot of a rule. Last
// writer wins. Returns false if the rule does not exist.
func (db *DB) UpdateRuleFeedback(ctx context.Context, id int64, feedback string) (bool, error) {
	query := `UPDATE rules SET feedback = ? WHERE id = ?`

	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, feedback, id)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to update rule feedback: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}

// DeleteRule deletes a rule by its ID. Returns false if no row was deleted.
func (db *DB) DeleteRule(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM rules WHERE id = ?`

	db.writeMu.Lock()
	res, err := db.ExecContext(ctx, query, id)
	db.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	db.triggerChange(ctx)
	return true, nil
}
