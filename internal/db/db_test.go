package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ldi/sitesafe/pkg/models"
)

// newTestDB opens an in-memory database with the schema applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	return db
}

// addWorker inserts a worker user and returns it.
func addWorker(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	u := &models.User{Username: username, Role: models.RoleWorker}
	if err := db.CreateUser(context.Background(), u, "hash"); err != nil {
		t.Fatalf("Failed to create worker: %v", err)
	}
	return u
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var mode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("Expected journal_mode wal, got %s", mode)
	}

	var fk int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("Failed to query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("Expected foreign_keys enabled (1), got %d", fk)
	}
}

func TestInitCreatesTables(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"users", "tasks", "rules"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s to exist: %v", table, err)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Second init failed: %v", err)
	}
}

func TestOnChangeHook(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	calls := 0
	db.SetOnChange(func(ctx context.Context) { calls++ })

	worker := addWorker(t, db, "dana")
	if calls != 1 {
		t.Errorf("Expected 1 hook call after create, got %d", calls)
	}

	db.DisableOnChange()
	task := &models.Task{WorkerID: worker.ID, WorkerUsername: worker.Username, Description: "Check exits"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected hook suppressed while disabled, got %d calls", calls)
	}

	db.EnableOnChange()
	if _, err := db.SetTaskStatus(ctx, task.ID, models.TaskStatusIncomplete); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 hook calls after re-enable, got %d", calls)
	}
}
