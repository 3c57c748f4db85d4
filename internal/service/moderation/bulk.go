package moderation

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/metrics"
)

// BulkConfig bounds a bulk invocation.
type BulkConfig struct {
	// Workers caps per-item concurrency.
	Workers int
	// MaxItems caps the id set of one invocation.
	MaxItems int
}

// BulkRequest is one bulk moderation invocation. IDs are content ids for
// approve/reject/flag and user ids for warn/ban. The id set is fixed at
// submission; items enqueued later are never swept in.
type BulkRequest struct {
	Action   models.ModAction
	IDs      []string
	Reason   string
	Duration *time.Duration
}

// bulkActions is the subset of the closed action set valid in bulk.
var bulkActions = map[models.ModAction]bool{
	models.ActionApprove: true,
	models.ActionReject:  true,
	models.ActionFlag:    true,
	models.ActionWarn:    true,
	models.ActionBan:     true,
}

// BulkApply runs one moderation action over a fixed id set with bounded
// concurrency. Each item succeeds or fails independently; the batch never
// aborts early and the result accounts for every id exactly once.
func (s *Service) BulkApply(ctx context.Context, req BulkRequest, cfg BulkConfig) (*models.BulkResult, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("bulk moderation requires the moderator role")
	}
	if !bulkActions[req.Action] {
		return nil, errors.Validation("action not valid in bulk: " + string(req.Action))
	}
	if len(req.IDs) == 0 {
		return nil, errors.Validation("ids must not be empty")
	}
	if cfg.MaxItems > 0 && len(req.IDs) > cfg.MaxItems {
		return nil, errors.Validation("too many ids in one bulk request")
	}
	if req.Action == models.ActionReject && req.Reason == "" {
		return nil, errors.Validation("a rejection reason is required")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu     sync.Mutex
		result = models.BulkResult{TotalCount: len(req.IDs)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range req.IDs {
		id := id
		g.Go(func() error {
			if err := s.applyOne(gctx, req, id); err != nil {
				mu.Lock()
				result.FailedCount++
				result.FailedItems = append(result.FailedItems, models.BulkFailed{ID: id, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			result.SuccessCount++
			mu.Unlock()
			return nil
		})
	}
	// workers never return errors; Wait only orders the memory
	_ = g.Wait()

	metrics.BulkItems.WithLabelValues(string(req.Action), "succeeded").Add(float64(result.SuccessCount))
	metrics.BulkItems.WithLabelValues(string(req.Action), "failed").Add(float64(result.FailedCount))

	sort.Slice(result.FailedItems, func(i, j int) bool {
		return result.FailedItems[i].ID < result.FailedItems[j].ID
	})
	s.log.Info("bulk moderation complete",
		zap.String("action", string(req.Action)),
		zap.Int("total", result.TotalCount),
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
	)
	return &result, nil
}

func (s *Service) applyOne(ctx context.Context, req BulkRequest, id string) error {
	switch req.Action {
	case models.ActionApprove:
		_, err := s.Approve(ctx, id, req.Reason)
		return err
	case models.ActionReject:
		return s.Reject(ctx, id, auth.FromContext(ctx).Subject, req.Reason)
	case models.ActionFlag:
		_, err := s.Flag(ctx, id, req.Reason)
		return err
	case models.ActionWarn:
		_, err := s.WarnUser(ctx, id, req.Reason)
		return err
	case models.ActionBan:
		_, err := s.BanUser(ctx, id, req.Reason, req.Duration)
		return err
	default:
		return errors.Validation("action not valid in bulk: " + string(req.Action))
	}
}
