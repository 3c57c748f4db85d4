package models

import "time"

// VoteType is a voter's judgment on a content item.
type VoteType string

const (
	VoteHelpful    VoteType = "helpful"
	VoteNotHelpful VoteType = "not_helpful"
)

// Valid reports whether v is a known vote type.
func (v VoteType) Valid() bool {
	return v == VoteHelpful || v == VoteNotHelpful
}

// VoteRecord is one voter's helpful/not-helpful judgment on a content item.
// Unique per (content_id, voter_id); the row set is the source of truth for
// the derived counters on ContentItem.
type VoteRecord struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	VoterID   string    `json:"-"`
	VoteType  VoteType  `json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
}

// FlagType categorizes a report against a content item.
type FlagType string

const (
	FlagSpam       FlagType = "spam"
	FlagProfanity  FlagType = "profanity"
	FlagHarassment FlagType = "harassment"
	FlagMisleading FlagType = "misleading"
	FlagOffTopic   FlagType = "off_topic"
	FlagOther      FlagType = "other"
)

// Valid reports whether f is a known flag type.
func (f FlagType) Valid() bool {
	switch f {
	case FlagSpam, FlagProfanity, FlagHarassment, FlagMisleading, FlagOffTopic, FlagOther:
		return true
	}
	return false
}

// FlagStatus is the review state of a flag record.
type FlagStatus string

const (
	FlagPending   FlagStatus = "pending"
	FlagReviewed  FlagStatus = "reviewed"
	FlagDismissed FlagStatus = "dismissed"
)

// FlagRecord is a report that a content item may violate policy.
type FlagRecord struct {
	ID         string     `json:"id"`
	ContentID  string     `json:"content_id"`
	ReporterID string     `json:"-"`
	FlagType   FlagType   `json:"flag_type"`
	Reason     string     `json:"reason"`
	Status     FlagStatus `json:"status"`
	ReviewerID string     `json:"-"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// FlagOutcome is a reviewer's decision on a flag.
type FlagOutcome string

const (
	// OutcomeUpheld marks the flag as valid; the referenced content gets a
	// moderation action.
	OutcomeUpheld FlagOutcome = "upheld"
	// OutcomeDismissed marks the flag as invalid.
	OutcomeDismissed FlagOutcome = "dismissed"
)

// Valid reports whether o is a known outcome.
func (o FlagOutcome) Valid() bool {
	return o == OutcomeUpheld || o == OutcomeDismissed
}
