// Package notification creates and stores author-facing notices for
// moderation transitions and hands them to an outbound delivery provider.
// Creation is synchronous with the transition; delivery is best-effort.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/redis"
)

// Repository is the persistence surface for notifications.
type Repository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID, recipientID string) error
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// Service creates, lists, and marks notifications.
type Service struct {
	log        *zap.Logger
	repo       Repository
	dispatcher *Dispatcher
	cache      *redis.Cache
}

// NewService creates the notification service. dispatcher and cache may be
// nil.
func NewService(log *zap.Logger, repo Repository, dispatcher *Dispatcher, cache *redis.Cache) *Service {
	return &Service{log: log, repo: repo, dispatcher: dispatcher, cache: cache}
}

// Send stores a notice for the recipient and attempts outbound delivery. The
// stored notice is authoritative; a delivery failure is logged and retried by
// the provider path only, never surfaced to the transition that produced it.
func (s *Service) Send(ctx context.Context, recipientID string, ntype models.NotificationType, payload map[string]interface{}) error {
	if recipientID == "" {
		return errors.Validation("recipient_id is required")
	}

	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        ntype,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	switch ntype {
	case models.NoticeContentRejected, models.NoticeWarning:
		n.ActionRequired = true
		n.AppealAllowed = true
	case models.NoticeContentApproved, models.NoticeAppealResolved:
	default:
		return errors.Validation("unknown notification type: " + string(ntype))
	}

	if err := s.repo.Insert(ctx, n); err != nil {
		return errors.LogWithError(ctx, s.log, "failed to store notification", err,
			zap.String("recipient_id", recipientID), zap.String("type", string(ntype)))
	}
	s.invalidateUnread(ctx, recipientID)

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.log.Warn("outbound notification delivery failed",
				zap.String("notification_id", n.ID),
				zap.String("type", string(ntype)),
				zap.Error(err))
		}
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if recipientID == "" {
		return nil, errors.Validation("recipient_id is required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	notices, err := s.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to list notifications", err,
			zap.String("recipient_id", recipientID))
	}
	return notices, nil
}

// MarkRead marks one notification read. Only the recipient can do this; a
// wrong id or a foreign notification both come back not found.
func (s *Service) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	if notificationID == "" || recipientID == "" {
		return errors.Validation("notification_id and recipient_id are required")
	}
	if err := s.repo.MarkRead(ctx, notificationID, recipientID); err != nil {
		return errors.LogWithError(ctx, s.log, "failed to mark notification read", err,
			zap.String("notification_id", notificationID))
	}
	s.invalidateUnread(ctx, recipientID)
	return nil
}

// UnreadCount returns the recipient's unread notice count, cached briefly.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	if recipientID == "" {
		return 0, errors.Validation("recipient_id is required")
	}
	if s.cache != nil {
		var count int
		if err := s.cache.Get(ctx, "unread", recipientID, &count); err == nil {
			return count, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, errors.LogWithError(ctx, s.log, "failed to count unread notifications", err,
			zap.String("recipient_id", recipientID))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, "unread", recipientID, count, redis.TTLUnreadCount); err != nil {
			s.log.Warn("failed to cache unread count", zap.Error(err))
		}
	}
	return count, nil
}

func (s *Service) invalidateUnread(ctx context.Context, recipientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "unread", recipientID); err != nil {
		s.log.Warn("failed to invalidate unread count cache", zap.Error(err))
	}
}
