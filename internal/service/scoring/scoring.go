package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/redis"
)

// BulkJobName keys the background re-scoring checkpoint.
const BulkJobName = "bulk_scoring"

// Repository is the persistence surface the scoring service needs.
type Repository interface {
	InsertAnalysisLog(ctx context.Context, entry *models.AnalysisLog) error
	SaveContentAnalysis(ctx context.Context, contentID string, analysis models.Analysis) error
	ListForScoring(ctx context.Context, afterID string, limit int, includeAnalyzed bool) ([]models.ContentItem, error)
	GetCheckpoint(ctx context.Context, jobName string) (string, error)
	SetCheckpoint(ctx context.Context, jobName, lastSeenID string) error
}

// Service runs the scoring engine against submitted content and keeps the
// immutable analysis log.
type Service struct {
	log      *zap.Logger
	repo     Repository
	analyzer *Analyzer
	cache    *redis.Cache
}

// NewService creates the scoring service. cache may be nil.
func NewService(log *zap.Logger, repo Repository, analyzer *Analyzer, cache *redis.Cache) *Service {
	return &Service{log: log, repo: repo, analyzer: analyzer, cache: cache}
}

// Analyzer exposes the underlying engine, e.g. for threshold reloads.
func (s *Service) Analyzer() *Analyzer { return s.analyzer }

// AnalyzeContent scores text and records the invocation in the analysis log.
// contentID may be empty for ad-hoc analysis; when set, the snapshot is also
// persisted on the content item.
func (s *Service) AnalyzeContent(ctx context.Context, contentID, text string) (models.Analysis, error) {
	analysis := s.analyzer.Analyze(text)

	entry := &models.AnalysisLog{
		ID:        uuid.NewString(),
		ContentID: contentID,
		Analysis:  analysis,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertAnalysisLog(ctx, entry); err != nil {
		return models.Analysis{}, errors.LogWithError(ctx, s.log, "failed to write analysis log", err,
			zap.String("content_id", contentID))
	}
	if contentID != "" {
		if err := s.repo.SaveContentAnalysis(ctx, contentID, analysis); err != nil {
			return models.Analysis{}, errors.LogWithError(ctx, s.log, "failed to save content analysis", err,
				zap.String("content_id", contentID))
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, "snapshot", contentID, analysis, redis.TTLScoringSnapshot); err != nil {
				s.log.Warn("failed to cache analysis snapshot", zap.String("content_id", contentID), zap.Error(err))
			}
		}
	}
	return analysis, nil
}

// BulkAnalyze scores up to limit not-yet-analyzed items, resuming from the
// job checkpoint. Items already carrying a snapshot are skipped unless force
// is set. Safe to re-run after interruption.
func (s *Service) BulkAnalyze(ctx context.Context, limit int, force bool) (int, error) {
	if limit <= 0 {
		return 0, errors.Validation("limit must be positive")
	}
	checkpoint, err := s.repo.GetCheckpoint(ctx, BulkJobName)
	if err != nil {
		return 0, errors.LogWithError(ctx, s.log, "failed to load scoring checkpoint", err)
	}

	items, err := s.repo.ListForScoring(ctx, checkpoint, limit, force)
	if err != nil {
		return 0, errors.LogWithError(ctx, s.log, "failed to list content for scoring", err)
	}
	if len(items) == 0 {
		// end of table: wrap around so newly submitted items are picked up
		if checkpoint != "" {
			if err := s.repo.SetCheckpoint(ctx, BulkJobName, ""); err != nil {
				return 0, errors.LogWithError(ctx, s.log, "failed to reset scoring checkpoint", err)
			}
		}
		return 0, nil
	}

	scored := 0
	for _, item := range items {
		if _, err := s.AnalyzeContent(ctx, item.ID, item.Body); err != nil {
			s.log.Warn("bulk scoring item failed", zap.String("content_id", item.ID), zap.Error(err))
			continue
		}
		scored++
	}
	lastID := items[len(items)-1].ID
	if err := s.repo.SetCheckpoint(ctx, BulkJobName, lastID); err != nil {
		return scored, errors.LogWithError(ctx, s.log, "failed to advance scoring checkpoint", err)
	}
	s.log.Info("bulk scoring run complete",
		zap.Int("scored", scored),
		zap.Int("batch", len(items)),
		zap.String("checkpoint", lastID),
		zap.Bool("force", force),
	)
	return scored, nil
}
