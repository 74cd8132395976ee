package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/ldi/sitesafe/internal/db"
)

func newTestLedger(t *testing.T) *Ledger {
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

func TestAddRule(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	r, err := l.AddRule(ctx, "Hard hats required on site")
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}
	if r.ID == 0 {
		t.Error("Expected rule ID to be set")
	}
	if r.Timestamp.IsZero() {
		t.Error("Expected creation timestamp")
	}

	if _, err := l.AddRule(ctx, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation for empty text, got %v", err)
	}
}

func TestDeleteRule(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	r, err := l.AddRule(ctx, "Hard hats required on site")
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	if err := l.DeleteRule(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}
	if err := l.DeleteRule(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for second delete, got %v", err)
	}
}

func TestGiveFeedbackLastWriterWins(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	r, err := l.AddRule(ctx, "Hard hats required on site")
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	if err := l.GiveFeedback(ctx, r.ID, "First comment"); err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}
	if err := l.GiveFeedback(ctx, r.ID, "Second comment"); err != nil {
		t.Fatalf("GiveFeedback overwrite failed: %v", err)
	}

	list, err := l.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 rule with feedback, got %d", len(list))
	}
	if *list[0].Feedback != "Second comment" {
		t.Errorf("Expected last feedback to win, got %q", *list[0].Feedback)
	}

	if err := l.GiveFeedback(ctx, 9999, "comment"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown rule, got %v", err)
	}
}

func TestListFeedbackSkipsRulesWithout(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	withFeedback, err := l.AddRule(ctx, "Hard hats required on site")
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}
	if _, err := l.AddRule(ctx, "Keep exits clear"); err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}
	if err := l.GiveFeedback(ctx, withFeedback.ID, "Add a visitor note"); err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}

	all, err := l.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 rules, got %d", len(all))
	}

	list, err := l.ListFeedback(ctx)
	if err != nil {
		t.Fatalf("ListFeedback failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != withFeedback.ID {
		t.Errorf("Expected only the annotated rule, got %+v", list)
	}
}
