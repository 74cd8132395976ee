package models

import "time"

// Rule is a safety guideline with a single overwritable feedback slot.
// Feedback is last-write-wins: concurrent submissions race and the
// final value is whichever write lands last.
type Rule struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Feedback  *string   `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}
