// Package moderation owns the content lifecycle state machine and the
// immutable record of moderation actions. All status writes go through the
// transition table; nothing else in the system touches content status.
package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/metrics"
	"github.com/campusvoice/contenttrust/pkg/redis"
)

// Repository is the transactional persistence surface for moderation.
type Repository interface {
	InsertContent(ctx context.Context, item *models.ContentItem, submit *models.ModerationAction) error
	GetContent(ctx context.Context, contentID string) (*models.ContentItem, error)
	// Transition applies action.Action to the content row named by
	// action.TargetID and records the action, all in one transaction.
	// changed is false for an idempotent no-op (re-flagging flagged content).
	Transition(ctx context.Context, action *models.ModerationAction) (agg *models.Aggregate, authorID string, changed bool, err error)
	RecordAction(ctx context.Context, action *models.ModerationAction) error
	GetAction(ctx context.Context, actionID string) (*models.ModerationAction, error)
	ListByStatus(ctx context.Context, status models.ContentStatus, limit, offset int) ([]models.ContentItem, error)
}

// Scorer runs the scoring engine against newly submitted content.
type Scorer interface {
	AnalyzeContent(ctx context.Context, contentID, text string) (models.Analysis, error)
}

// Notifier delivers author-facing notifications about transitions.
type Notifier interface {
	Send(ctx context.Context, recipientID string, ntype models.NotificationType, payload map[string]interface{}) error
}

// Config holds the moderation service's tunables.
type Config struct {
	// AutoApprovePassing routes submissions that pass every scoring check
	// straight to approved.
	AutoApprovePassing bool
}

// Service implements content submission and moderation transitions.
type Service struct {
	log      *zap.Logger
	repo     Repository
	scorer   Scorer
	notifier Notifier
	cache    *redis.Cache
	cfg      Config
}

// NewService creates the moderation service. cache and notifier may be nil.
func NewService(log *zap.Logger, repo Repository, scorer Scorer, notifier Notifier, cache *redis.Cache, cfg Config) *Service {
	return &Service{log: log, repo: repo, scorer: scorer, notifier: notifier, cache: cache, cfg: cfg}
}

// SubmitContent stores a new content item, scores it, and routes it to
// pending, approved, or flagged. A scoring failure leaves the item pending;
// the background sweep scores it later.
func (s *Service) SubmitContent(ctx context.Context, authorID, body string) (*models.ContentItem, error) {
	if authorID == "" {
		return nil, errors.Validation("author_id is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.Validation("body must not be empty")
	}

	item := &models.ContentItem{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Body:      body,
		Status:    models.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	submit := s.newAction(models.TargetContent, item.ID, authorID, models.ActionSubmit, "")
	if err := s.repo.InsertContent(ctx, item, submit); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to insert content", err,
			zap.String("author_id", authorID))
	}
	metrics.Transitions.WithLabelValues(string(models.ActionSubmit)).Inc()

	analysis, err := s.scorer.AnalyzeContent(ctx, item.ID, body)
	if err != nil {
		s.log.Warn("scoring failed on submission, leaving content pending",
			zap.String("content_id", item.ID), zap.Error(err))
		return item, nil
	}
	item.Analysis = &analysis

	switch {
	case analysis.AutoFlag:
		reason := strings.Join(analysis.FlagReasons, ", ")
		if err := s.ForceFlag(ctx, item.ID, reason); err != nil {
			s.log.Warn("failed to auto-flag submission", zap.String("content_id", item.ID), zap.Error(err))
		} else {
			item.Status = models.StatusFlagged
			item.IsFlagged = true
		}
	case s.cfg.AutoApprovePassing:
		action := s.newAction(models.TargetContent, item.ID, models.SystemActor, models.ActionApprove, "passed automated checks")
		if _, err := s.applyTransition(ctx, action); err != nil {
			s.log.Warn("failed to auto-approve submission", zap.String("content_id", item.ID), zap.Error(err))
		} else {
			item.Status = models.StatusApproved
		}
	}
	return item, nil
}

// Approve moves content to approved and dismisses its outstanding flags.
func (s *Service) Approve(ctx context.Context, contentID, reason string) (*models.Aggregate, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("approving content requires the moderator role")
	}
	return s.applyTransition(ctx, s.newAction(models.TargetContent, contentID, authCtx.Subject, models.ActionApprove, reason))
}

// Reject moves content to rejected. The item and its moderation record stay
// queryable; reversal requires an approved appeal. A reason is mandatory.
// The actor role comes from the request context only, never from actorID, so
// a token claiming the system's name buys nothing.
func (s *Service) Reject(ctx context.Context, contentID, actorID, reason string) error {
	if !auth.IsModerator(auth.FromContext(ctx)) {
		return errors.Authorization("rejecting content requires the moderator role")
	}
	if strings.TrimSpace(reason) == "" {
		return errors.Validation("a rejection reason is required")
	}
	_, err := s.applyTransition(ctx, s.newAction(models.TargetContent, contentID, actorID, models.ActionReject, reason))
	return err
}

// Flag moves content to flagged on a moderator's initiative.
func (s *Service) Flag(ctx context.Context, contentID, reason string) (*models.Aggregate, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("flagging content requires the moderator role")
	}
	return s.applyTransition(ctx, s.newAction(models.TargetContent, contentID, authCtx.Subject, models.ActionFlag, reason))
}

// ForceFlag moves content to flagged on the system's behalf: scoring
// threshold breaches and report pile-ups land here. Already-flagged content
// is a no-op.
func (s *Service) ForceFlag(ctx context.Context, contentID, reason string) error {
	_, err := s.applyTransition(ctx, s.newAction(models.TargetContent, contentID, models.SystemActor, models.ActionAutoFlag, reason))
	return err
}

// ReverseRejection moves rejected content back to approved. Only the appeal
// path calls this; the transition table permits no other way out of rejected.
func (s *Service) ReverseRejection(ctx context.Context, contentID, actorID, reason string) (*models.Aggregate, error) {
	return s.applyTransition(ctx, s.newAction(models.TargetContent, contentID, actorID, models.ActionAppealResolve, reason))
}

// RecordAppealOutcome writes the appeal_resolved action for an appeal ruling
// that moves no content state: rejected appeals, and approved appeals of
// warnings and bans. Reversed content rejections record theirs through the
// transition itself.
func (s *Service) RecordAppealOutcome(ctx context.Context, appealed *models.ModerationAction, actorID, reason string) (*models.ModerationAction, error) {
	action := s.newAction(appealed.TargetKind, appealed.TargetID, actorID, models.ActionAppealResolve, reason)
	if err := s.repo.RecordAction(ctx, action); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to record appeal outcome", err,
			zap.String("appealed_action_id", appealed.ID))
	}
	metrics.Transitions.WithLabelValues(string(models.ActionAppealResolve)).Inc()
	s.log.Info("appeal outcome recorded",
		zap.String("appealed_action_id", appealed.ID),
		zap.String("target_id", appealed.TargetID),
	)
	return action, nil
}

// WarnUser records a warning against a user and notifies them.
func (s *Service) WarnUser(ctx context.Context, userID, reason string) (*models.ModerationAction, error) {
	return s.userAction(ctx, userID, models.ActionWarn, reason, nil)
}

// BanUser records a ban against a user. duration of nil means indefinite.
func (s *Service) BanUser(ctx context.Context, userID, reason string, duration *time.Duration) (*models.ModerationAction, error) {
	return s.userAction(ctx, userID, models.ActionBan, reason, duration)
}

func (s *Service) userAction(ctx context.Context, userID string, act models.ModAction, reason string, duration *time.Duration) (*models.ModerationAction, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization(string(act) + " requires the moderator role")
	}
	if userID == "" {
		return nil, errors.Validation("user_id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.Validation("a reason is required")
	}

	action := s.newAction(models.TargetUser, userID, authCtx.Subject, act, reason)
	action.Duration = duration
	if err := s.repo.RecordAction(ctx, action); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to record user action", err,
			zap.String("user_id", userID), zap.String("action", string(act)))
	}
	metrics.Transitions.WithLabelValues(string(act)).Inc()

	if act.AuthorVisible() {
		s.notify(ctx, userID, models.NoticeWarning, map[string]interface{}{
			"action_id": action.ID,
			"reason":    reason,
		})
	}
	s.log.Info("user action recorded",
		zap.String("user_id", userID),
		zap.String("action", string(act)),
	)
	return action, nil
}

// GetContent returns one content item.
func (s *Service) GetContent(ctx context.Context, contentID string) (*models.ContentItem, error) {
	if contentID == "" {
		return nil, errors.Validation("content_id is required")
	}
	item, err := s.repo.GetContent(ctx, contentID)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to load content", err,
			zap.String("content_id", contentID))
	}
	return item, nil
}

// GetAction returns one moderation action.
func (s *Service) GetAction(ctx context.Context, actionID string) (*models.ModerationAction, error) {
	if actionID == "" {
		return nil, errors.Validation("action_id is required")
	}
	action, err := s.repo.GetAction(ctx, actionID)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to load moderation action", err,
			zap.String("action_id", actionID))
	}
	return action, nil
}

// ListQueue returns content awaiting review in the given state.
func (s *Service) ListQueue(ctx context.Context, status models.ContentStatus, limit, offset int) ([]models.ContentItem, error) {
	if !auth.IsModerator(auth.FromContext(ctx)) {
		return nil, errors.Authorization("the moderation queue requires the moderator role")
	}
	if !status.Valid() {
		return nil, errors.Validation("unknown status: " + string(status))
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	items, err := s.repo.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to list moderation queue", err)
	}
	return items, nil
}

func (s *Service) applyTransition(ctx context.Context, action *models.ModerationAction) (*models.Aggregate, error) {
	agg, authorID, changed, err := s.repo.Transition(ctx, action)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "transition failed", err,
			zap.String("content_id", action.TargetID),
			zap.String("action", string(action.Action)))
	}
	if !changed {
		return agg, nil
	}
	metrics.Transitions.WithLabelValues(string(action.Action)).Inc()
	s.invalidate(ctx, action.TargetID)

	if action.Action.AuthorVisible() && authorID != "" {
		ntype := models.NoticeContentApproved
		if action.Action == models.ActionReject {
			ntype = models.NoticeContentRejected
		}
		s.notify(ctx, authorID, ntype, map[string]interface{}{
			"content_id": action.TargetID,
			"action_id":  action.ID,
			"reason":     action.Reason,
		})
	}
	s.log.Info("transition applied",
		zap.String("content_id", action.TargetID),
		zap.String("action", string(action.Action)),
		zap.String("to", string(agg.Status)),
		zap.String("actor_id", action.ActorID),
	)
	return agg, nil
}

// notify is best-effort: a notification failure never fails the transition
// that produced it.
func (s *Service) notify(ctx context.Context, recipientID string, ntype models.NotificationType, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, recipientID, ntype, payload); err != nil {
		s.log.Warn("failed to send notification",
			zap.String("recipient_id", recipientID),
			zap.String("type", string(ntype)),
			zap.Error(err))
	}
}

func (s *Service) newAction(kind models.TargetKind, targetID, actorID string, act models.ModAction, reason string) *models.ModerationAction {
	return &models.ModerationAction{
		ID:         uuid.NewString(),
		TargetKind: kind,
		TargetID:   targetID,
		ActorID:    actorID,
		Action:     act,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
}

func (s *Service) invalidate(ctx context.Context, contentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "aggregate", contentID); err != nil {
		s.log.Warn("failed to invalidate aggregate cache",
			zap.String("content_id", contentID), zap.Error(err))
	}
}
