package db

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ldi/sitesafe/pkg/models"
)

func seedSnapshotData(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	worker := addWorker(t, db, "dana")

	task := &models.Task{WorkerID: worker.ID, WorkerUsername: worker.Username, Description: "Check exits"}
	if err := db.CreateTask(ctx, task); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	if _, err := db.SetViolation(ctx, task.ID, models.TaskStatusViolation, "No hard hat", time.Now()); err != nil {
		t.Fatalf("Failed to set violation: %v", err)
	}

	rule := &models.Rule{Text: "Hard hats required on site"}
	if err := db.CreateRule(ctx, rule); err != nil {
		t.Fatalf("Failed to create rule: %v", err)
	}
	if _, err := db.UpdateRuleFeedback(ctx, rule.ID, "Add a visitor note"); err != nil {
		t.Fatalf("Failed to set feedback: %v", err)
	}
}

func TestExportSnapshot(t *testing.T) {
	db := newTestDB(t)
	seedSnapshotData(t, db)

	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := db.ExportSnapshot(context.Background(), path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open snapshot: %v", err)
	}
	defer file.Close()

	counts := map[string]int{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &base); err != nil {
			t.Fatalf("Failed to parse snapshot line: %v", err)
		}
		counts[base.RecordType]++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Scanner error: %v", err)
	}

	if counts["meta"] != 1 {
		t.Errorf("Expected 1 meta record, got %d", counts["meta"])
	}
	if counts["user"] != 1 {
		t.Errorf("Expected 1 user record, got %d", counts["user"])
	}
	if counts["task"] != 1 {
		t.Errorf("Expected 1 task record, got %d", counts["task"])
	}
	if counts["rule"] != 1 {
		t.Errorf("Expected 1 rule record, got %d", counts["rule"])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newTestDB(t)
	seedSnapshotData(t, src)

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := src.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	dst := newTestDB(t)
	if err := dst.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	task, err := dst.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get imported task: %v", err)
	}
	if task == nil {
		t.Fatal("Expected imported task")
	}
	if task.Status != models.TaskStatusViolation {
		t.Errorf("Expected imported status violation, got %s", task.Status)
	}
	if task.ViolationComment == nil || *task.ViolationComment != "No hard hat" {
		t.Errorf("Expected imported violation comment, got %v", task.ViolationComment)
	}

	rule, err := dst.GetRule(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to get imported rule: %v", err)
	}
	if rule == nil {
		t.Fatal("Expected imported rule")
	}
	if rule.Feedback == nil || *rule.Feedback != "Add a visitor note" {
		t.Errorf("Expected imported feedback, got %v", rule.Feedback)
	}

	// Credentials survive the round trip.
	user, err := dst.GetUserByCredentials(ctx, "dana", "hash")
	if err != nil {
		t.Fatalf("Failed to get imported user: %v", err)
	}
	if user == nil {
		t.Error("Expected imported credentials to resolve")
	}
}

func TestImportReplacesExistingRows(t *testing.T) {
	src := newTestDB(t)
	seedSnapshotData(t, src)

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshot.jsonl")
	if err := src.ExportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to export snapshot: %v", err)
	}

	// Diverge the source, then import the older snapshot on top.
	if _, err := src.SetTaskStatus(ctx, 1, models.TaskStatusCompleted); err != nil {
		t.Fatalf("Failed to diverge task: %v", err)
	}
	if err := src.ImportSnapshot(ctx, path); err != nil {
		t.Fatalf("Failed to import snapshot: %v", err)
	}

	task, _ := src.GetTask(ctx, 1)
	if task.Status != models.TaskStatusViolation {
		t.Errorf("Expected import to restore status violation, got %s", task.Status)
	}
}
