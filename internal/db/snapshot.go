package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ldi/sitesafe/pkg/models"
)

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Hooks are best-effort; a failed export must not fail the
		// original write operation.
		_ = db.ExportSnapshot(ctx, path)
	})
}

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotUser struct {
	RecordType string      `json:"record_type"`
	ID         int64       `json:"id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Role       models.Role `json:"role"`
}

type snapshotTask struct {
	RecordType string `json:"record_type"`
	models.Task
}

type snapshotRule struct {
	RecordType string `json:"record_type"`
	models.Rule
}

// ExportSnapshot writes all users, tasks and rules as JSONL to the given
// path, atomically via a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	enc := json.NewEncoder(tempFile)
	if err := enc.Encode(snapshotMeta{RecordType: "meta", ExportedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to write meta record: %w", err)
	}

	if err := db.exportUsers(ctx, enc); err != nil {
		return err
	}

	tasks, err := db.ListTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := enc.Encode(snapshotTask{RecordType: "task", Task: *t}); err != nil {
			return fmt.Errorf("failed to write task record: %w", err)
		}
	}

	rules, err := db.ListRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if err := enc.Encode(snapshotRule{RecordType: "rule", Rule: *r}); err != nil {
			return fmt.Errorf("failed to write rule record: %w", err)
		}
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (db *DB) exportUsers(ctx context.Context, enc *json.Encoder) error {
	rows, err := db.QueryContext(ctx, `SELECT id, username, password, role FROM users ORDER BY id ASC`)
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u := snapshotUser{RecordType: "user"}
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role); err != nil {
			return fmt.Errorf("failed to scan user: %w", err)
		}
		if err := enc.Encode(u); err != nil {
			return fmt.Errorf("failed to write user record: %w", err)
		}
	}

	return rows.Err()
}

// ImportSnapshot reads a JSONL snapshot and populates the database,
// replacing rows whose ids already exist. The whole import runs in a
// single transaction.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			// Skip meta
		case "user":
			var u snapshotUser
			if err := json.Unmarshal(line, &u); err != nil {
				return fmt.Errorf("failed to unmarshal user: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO users (id, username, password, role)
				VALUES (?, ?, ?, ?)`,
				u.ID, u.Username, u.Password, u.Role)
			if err != nil {
				return fmt.Errorf("failed to import user %s: %w", u.Username, err)
			}

		case "task":
			var t snapshotTask
			if err := json.Unmarshal(line, &t); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO tasks (
					id, worker_id, worker_username, task_description, status,
					violation_comment, violation_timestamp, worker_report, worker_media
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.Task.ID, t.WorkerID, t.WorkerUsername, t.Task.Description, t.Task.Status,
				t.ViolationComment, t.ViolationTimestamp, t.WorkerReport, t.WorkerMedia)
			if err != nil {
				return fmt.Errorf("failed to import task %d: %w", t.Task.ID, err)
			}

		case "rule":
			var r snapshotRule
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("failed to unmarshal rule: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO rules (id, rule_text, feedback, timestamp)
				VALUES (?, ?, ?, ?)`,
				r.Rule.ID, r.Text, r.Feedback, r.Rule.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to import rule %d: %w", r.Rule.ID, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}
