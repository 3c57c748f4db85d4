// Package appeal lets users contest moderation actions. An appeal binds to
// one moderation action, allows one open appeal per action, and resolves
// exactly once.
package appeal

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// Repository is the persistence surface for appeals.
type Repository interface {
	Insert(ctx context.Context, a *models.Appeal) error
	Get(ctx context.Context, appealID string) (*models.Appeal, error)
	Resolve(ctx context.Context, appealID, resolverID, resolution string, status models.AppealStatus) (*models.Appeal, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Appeal, error)
}

// Moderator is the slice of the moderation service a resolution drives: the
// reversal for approved content-rejection appeals, and the action record
// every other ruling leaves behind.
type Moderator interface {
	GetAction(ctx context.Context, actionID string) (*models.ModerationAction, error)
	GetContent(ctx context.Context, contentID string) (*models.ContentItem, error)
	ReverseRejection(ctx context.Context, contentID, actorID, reason string) (*models.Aggregate, error)
	RecordAppealOutcome(ctx context.Context, appealed *models.ModerationAction, actorID, reason string) (*models.ModerationAction, error)
}

// Notifier tells the appellant how their appeal went.
type Notifier interface {
	Send(ctx context.Context, recipientID string, ntype models.NotificationType, payload map[string]interface{}) error
}

// Service implements filing and resolving appeals.
type Service struct {
	log       *zap.Logger
	repo      Repository
	moderator Moderator
	notifier  Notifier
}

// NewService creates the appeal service. notifier may be nil.
func NewService(log *zap.Logger, repo Repository, moderator Moderator, notifier Notifier) *Service {
	return &Service{log: log, repo: repo, moderator: moderator, notifier: notifier}
}

// File opens an appeal against a moderation action. Only the person the
// action hit can appeal it, only appealable actions qualify, and at most one
// appeal per action may be open at a time.
func (s *Service) File(ctx context.Context, actionID, reason string) (*models.Appeal, error) {
	authCtx := auth.FromContext(ctx)
	if authCtx.Subject == "" {
		return nil, errors.Authorization("filing an appeal requires a signed-in user")
	}
	if actionID == "" {
		return nil, errors.Validation("action_id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.Validation("an appeal reason is required")
	}

	action, err := s.moderator.GetAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	if !action.Action.AppealEligible() {
		return nil, errors.Validation("action cannot be appealed: " + string(action.Action))
	}
	if err := s.checkOwnership(ctx, authCtx.Subject, action); err != nil {
		return nil, err
	}

	a := &models.Appeal{
		ID:        uuid.NewString(),
		UserID:    authCtx.Subject,
		ActionID:  actionID,
		Reason:    reason,
		Status:    models.AppealPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to file appeal", err,
			zap.String("action_id", actionID))
	}
	s.log.Info("appeal filed",
		zap.String("appeal_id", a.ID),
		zap.String("action_id", actionID),
	)
	return a, nil
}

// Resolve records a moderator's one-time ruling on an appeal. Approval
// reverses the underlying content rejection; every ruling, reversal or not,
// leaves an appeal_resolved moderation action, and either way the appellant
// is notified. Resolving a resolved appeal is a conflict.
func (s *Service) Resolve(ctx context.Context, appealID string, decision models.AppealDecision, resolution string) (*models.Appeal, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("resolving appeals requires the moderator role")
	}
	if appealID == "" {
		return nil, errors.Validation("appeal_id is required")
	}
	if !decision.Valid() {
		return nil, errors.Validation("unknown decision: " + string(decision))
	}

	status := models.AppealRejected
	if decision == models.DecisionApprove {
		status = models.AppealApproved
	}
	a, err := s.repo.Resolve(ctx, appealID, authCtx.Subject, resolution, status)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to resolve appeal", err,
			zap.String("appeal_id", appealID))
	}

	s.recordOutcome(ctx, a, decision, authCtx.Subject, resolution)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, a.UserID, models.NoticeAppealResolved, map[string]interface{}{
			"appeal_id": a.ID,
			"action_id": a.ActionID,
			"decision":  string(decision),
		}); err != nil {
			s.log.Warn("failed to notify appellant", zap.String("appeal_id", a.ID), zap.Error(err))
		}
	}
	s.log.Info("appeal resolved",
		zap.String("appeal_id", a.ID),
		zap.String("decision", string(decision)),
	)
	return a, nil
}

// Get returns one appeal. Visible to its owner and to moderators.
func (s *Service) Get(ctx context.Context, appealID string) (*models.Appeal, error) {
	if appealID == "" {
		return nil, errors.Validation("appeal_id is required")
	}
	a, err := s.repo.Get(ctx, appealID)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to load appeal", err,
			zap.String("appeal_id", appealID))
	}
	authCtx := auth.FromContext(ctx)
	if a.UserID != authCtx.Subject && !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("not your appeal")
	}
	return a, nil
}

// ListMine returns the caller's appeals, newest first.
func (s *Service) ListMine(ctx context.Context, limit, offset int) ([]models.Appeal, error) {
	authCtx := auth.FromContext(ctx)
	if authCtx.Subject == "" {
		return nil, errors.Authorization("listing appeals requires a signed-in user")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	appeals, err := s.repo.ListByUser(ctx, authCtx.Subject, limit, offset)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to list appeals", err)
	}
	return appeals, nil
}

// checkOwnership verifies the appellant is the one the action hit: the
// content's author for content actions, the target user for user actions.
func (s *Service) checkOwnership(ctx context.Context, subject string, action *models.ModerationAction) error {
	switch action.TargetKind {
	case models.TargetUser:
		if action.TargetID != subject {
			return errors.Authorization("only the targeted user can appeal this action")
		}
	case models.TargetContent:
		item, err := s.moderator.GetContent(ctx, action.TargetID)
		if err != nil {
			return err
		}
		if item.AuthorID != subject {
			return errors.Authorization("only the content author can appeal this action")
		}
	default:
		return errors.Validation("unknown action target kind")
	}
	return nil
}

// recordOutcome leaves the appeal_resolved moderation action for a ruling.
// An approved appeal of a content rejection records it through the reversing
// transition; every other ruling records it directly (warnings and bans carry
// no content state to restore). A failure here does not unwind the
// resolution; it is logged for manual follow-up.
func (s *Service) recordOutcome(ctx context.Context, a *models.Appeal, decision models.AppealDecision, actorID, resolution string) {
	action, err := s.moderator.GetAction(ctx, a.ActionID)
	if err != nil {
		s.log.Warn("failed to load appealed action", zap.String("appeal_id", a.ID), zap.Error(err))
		return
	}
	reason := resolution
	if reason == "" {
		reason = "appeal " + string(a.Status)
	}
	if decision == models.DecisionApprove &&
		action.TargetKind == models.TargetContent && action.Action == models.ActionReject {
		if _, err := s.moderator.ReverseRejection(ctx, action.TargetID, actorID, reason); err != nil {
			s.log.Warn("failed to reverse rejection after approved appeal",
				zap.String("appeal_id", a.ID),
				zap.String("content_id", action.TargetID),
				zap.Error(err))
		}
		return
	}
	if _, err := s.moderator.RecordAppealOutcome(ctx, action, actorID, reason); err != nil {
		s.log.Warn("failed to record appeal outcome",
			zap.String("appeal_id", a.ID),
			zap.String("action_id", a.ActionID),
			zap.Error(err))
	}
}
