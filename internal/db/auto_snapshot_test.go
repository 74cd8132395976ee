package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ldi/sitesafe/pkg/models"
)

func TestAutoSnapshot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "auto-snapshot.jsonl")
	db.EnableAutoSnapshot(path)

	worker := addWorker(t, db, "dana")

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected snapshot after write: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}

	task := &models.Task{WorkerID: worker.ID, WorkerUsername: worker.Username, Description: "Check exits"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if len(after) <= len(before) {
		t.Error("Expected snapshot to grow after second write")
	}
}

func TestAutoSnapshotRespectsDisable(t *testing.T) {
	db := newTestDB(t)

	path := filepath.Join(t.TempDir(), "auto-snapshot.jsonl")
	db.EnableAutoSnapshot(path)
	db.DisableOnChange()

	addWorker(t, db, "dana")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected no snapshot while hook disabled, got %v", err)
	}
}
