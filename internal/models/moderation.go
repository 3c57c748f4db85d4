package models

import "time"

// ModAction is the closed set of moderation actions. Raw strings arriving at
// the transport layer are parsed through ParseModAction so an unrecognized
// action fails fast instead of silently no-op'ing.
type ModAction string

const (
	ActionSubmit        ModAction = "submit"
	ActionApprove       ModAction = "approve"
	ActionReject        ModAction = "reject"
	ActionFlag          ModAction = "flag"
	ActionAutoFlag      ModAction = "auto_flag"
	ActionWarn          ModAction = "warn"
	ActionBan           ModAction = "ban"
	ActionAppealResolve ModAction = "appeal_resolved"
)

// ParseModAction validates a raw action string against the closed set.
func ParseModAction(s string) (ModAction, bool) {
	a := ModAction(s)
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionFlag, ActionAutoFlag,
		ActionWarn, ActionBan, ActionAppealResolve:
		return a, true
	}
	return "", false
}

// AppealEligible reports whether an action of this kind may be appealed.
func (a ModAction) AppealEligible() bool {
	return a == ActionReject || a == ActionBan || a == ActionWarn
}

// AuthorVisible reports whether a transition of this kind produces an
// author-facing notification.
func (a ModAction) AuthorVisible() bool {
	return a == ActionApprove || a == ActionReject || a == ActionWarn
}

// TargetKind dispatches moderation over the capability a target offers:
// content items are reviewable, users are warnable/bannable. New moderatable
// kinds reuse the same state machine and bulk coordinator.
type TargetKind string

const (
	TargetContent TargetKind = "content"
	TargetUser    TargetKind = "user"
)

// Kind returns the target kind an action operates on.
func (a ModAction) Kind() TargetKind {
	if a == ActionWarn || a == ActionBan {
		return TargetUser
	}
	return TargetContent
}

// SystemActor is the actor recorded for automated transitions.
const SystemActor = "system"

// ModerationAction is an immutable audit entry for any state-changing act.
// Duration is set for time-bound user actions (ban).
type ModerationAction struct {
	ID         string         `json:"id"`
	TargetKind TargetKind     `json:"target_kind"`
	TargetID   string         `json:"target_id"`
	ActorID    string         `json:"actor_id"`
	Action     ModAction      `json:"action"`
	Reason     string         `json:"reason"`
	Duration   *time.Duration `json:"duration,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// BulkResult reports the per-item outcomes of a bulk operation. Per-item
// failures never abort the batch.
type BulkResult struct {
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
	TotalCount   int          `json:"total_count"`
	FailedItems  []BulkFailed `json:"failed_items"`
}

// BulkFailed identifies one failed item and the error it hit.
type BulkFailed struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}
