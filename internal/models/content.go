package models

import "time"

// ContentStatus is the moderation lifecycle state of a content item. Status
// changes go through the state machine only; repositories never write it
// directly outside a transition.
type ContentStatus string

const (
	StatusPending  ContentStatus = "pending"
	StatusApproved ContentStatus = "approved"
	StatusRejected ContentStatus = "rejected"
	StatusFlagged  ContentStatus = "flagged"
)

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusFlagged:
		return true
	}
	return false
}

// ContentItem is a moderatable unit of user-generated text (a review).
// AuthorID is an opaque identity reference, never exposed to other users.
type ContentItem struct {
	ID              string        `json:"id"`
	AuthorID        string        `json:"-"`
	Body            string        `json:"body"`
	Status          ContentStatus `json:"status"`
	Analysis        *Analysis     `json:"analysis,omitempty"`
	HelpfulCount    int           `json:"helpful_count"`
	NotHelpfulCount int           `json:"not_helpful_count"`
	IsFlagged       bool          `json:"is_flagged"`
	CreatedAt       time.Time     `json:"created_at"`
	ModeratedAt     *time.Time    `json:"moderated_at,omitempty"`
}

// Aggregate is the post-operation view returned by every mutating call so a
// caller can reconcile optimistic local state.
type Aggregate struct {
	ContentID       string        `json:"content_id"`
	Status          ContentStatus `json:"status"`
	HelpfulCount    int           `json:"helpful_count"`
	NotHelpfulCount int           `json:"not_helpful_count"`
	IsFlagged       bool          `json:"is_flagged"`
	PendingFlags    int           `json:"pending_flags,omitempty"`
}
