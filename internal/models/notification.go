package models

import "time"

// NotificationType categorizes author-facing notices.
type NotificationType string

const (
	NoticeContentApproved NotificationType = "content_approved"
	NoticeContentRejected NotificationType = "content_rejected"
	NoticeWarning         NotificationType = "warning"
	NoticeAppealResolved  NotificationType = "appeal_resolved"
)

// Notification is an author-visible notice produced by a state transition.
type Notification struct {
	ID             string                 `json:"id"`
	RecipientID    string                 `json:"-"`
	Type           NotificationType       `json:"type"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	ActionRequired bool                   `json:"action_required"`
	AppealAllowed  bool                   `json:"appeal_allowed"`
	Read           bool                   `json:"read"`
	CreatedAt      time.Time              `json:"created_at"`
}

// AppealStatus is the lifecycle state of an appeal.
type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

// AppealDecision is a moderator's ruling on an appeal.
type AppealDecision string

const (
	DecisionApprove AppealDecision = "approved"
	DecisionReject  AppealDecision = "rejected"
)

// Valid reports whether d is a known decision.
func (d AppealDecision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Appeal is a user-initiated request to reverse a prior moderation action.
// Resolution is a one-time human decision; resolving twice is a conflict.
type Appeal struct {
	ID           string       `json:"id"`
	UserID       string       `json:"-"`
	ActionID     string       `json:"moderation_action_id"`
	Reason       string       `json:"reason"`
	Status       AppealStatus `json:"status"`
	Resolution   string       `json:"resolution,omitempty"`
	ResolvedByID string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
}
