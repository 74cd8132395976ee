package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/ldi/sitesafe/pkg/models"
)

var (
	// ErrNotFound is returned when a referenced rule does not exist.
	ErrNotFound = errors.New("rule not found")

	// ErrValidation is returned for empty rule text.
	ErrValidation = errors.New("invalid input")
)

// Store is the subset of database operations the ledger needs.
type Store interface {
	CreateRule(ctx context.Context, r *models.Rule) error
	ListRules(ctx context.Context) ([]*models.Rule, error)
	UpdateRuleFeedback(ctx context.Context, id int64, feedback string) (bool, error)
	DeleteRule(ctx context.Context, id int64) (bool, error)
}

// Ledger manages safety rules and their single-slot feedback field.
// Feedback is an overwritable slot, not an append log: concurrent
// submissions race and the last write wins.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// AddRule stores a new rule with its creation timestamp. The text is
// immutable after creation.
func (l *Ledger) AddRule(ctx context.Context, text string) (*models.Rule, error) {
	if text == "" {
		return nil, fmt.Errorf("rule text must not be empty: %w", ErrValidation)
	}

	r := &models.Rule{Text: text}
	if err := l.store.CreateRule(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteRule removes a rule. Deleting an unknown id fails with ErrNotFound.
func (l *Ledger) DeleteRule(ctx context.Context, id int64) error {
	ok, err := l.store.DeleteRule(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return nil
}

// GiveFeedback overwrites the rule's feedback slot unconditionally.
func (l *Ledger) GiveFeedback(ctx context.Context, ruleID int64, feedback string) error {
	ok, err := l.store.UpdateRuleFeedback(ctx, ruleID, feedback)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("rule %d: %w", ruleID, ErrNotFound)
	}
	return nil
}

// ListRules returns a snapshot of all rules.
func (l *Ledger) ListRules(ctx context.Context) ([]*models.Rule, error) {
	return l.store.ListRules(ctx)
}

// ListFeedback returns the rules that currently carry feedback.
func (l *Ledger) ListFeedback(ctx context.Context) ([]*models.Rule, error) {
	all, err := l.store.ListRules(ctx)
	if err != nil {
		return nil, err
	}

	var withFeedback []*models.Rule
	for _, r := range all {
		if r.Feedback != nil && *r.Feedback != "" {
			withFeedback = append(withFeedback, r)
		}
	}
	return withFeedback, nil
}
