// Package audit keeps the append-only trail for system-initiated corrections
// such as counter drift fixes. Entries complement moderation actions, which
// cover actor-initiated changes.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// Repository is the persistence surface for audit entries.
type Repository interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	ListByContent(ctx context.Context, contentID string, limit int) ([]models.AuditEntry, error)
	ListByComponent(ctx context.Context, component string, limit int) ([]models.AuditEntry, error)
}

// Service records and queries audit entries.
type Service struct {
	log  *zap.Logger
	repo Repository
}

// NewService creates the audit service.
func NewService(log *zap.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Record appends one audit entry. contentID may be empty for events not tied
// to a single item.
func (s *Service) Record(ctx context.Context, component, contentID, reason string, detail map[string]interface{}) error {
	entry := &models.AuditEntry{
		ID:        uuid.NewString(),
		Component: component,
		ContentID: contentID,
		Reason:    reason,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return errors.LogWithError(ctx, s.log, "failed to write audit entry", err,
			zap.String("component", component), zap.String("content_id", contentID))
	}
	return nil
}

// ListByContent returns the audit trail for one content item, newest first.
func (s *Service) ListByContent(ctx context.Context, contentID string, limit int) ([]models.AuditEntry, error) {
	if contentID == "" {
		return nil, errors.Validation("content_id is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.repo.ListByContent(ctx, contentID, limit)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to list audit entries", err,
			zap.String("content_id", contentID))
	}
	return entries, nil
}

// ListByComponent returns recent entries written by one component.
func (s *Service) ListByComponent(ctx context.Context, component string, limit int) ([]models.AuditEntry, error) {
	if component == "" {
		return nil, errors.Validation("component is required")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.repo.ListByComponent(ctx, component, limit)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to list audit entries", err,
			zap.String("component", component))
	}
	return entries, nil
}
