// Package ledger owns the vote and flag records for content items and the
// derived counters on each item. Every record mutation and its counter update
// commit in one transaction; counters can always be recomputed from the rows.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/pkg/auth"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/metrics"
	"github.com/campusvoice/contenttrust/pkg/redis"
)

// VoteResult tells a caller what a vote submission resolved to.
type VoteResult string

const (
	// VoteInserted is a first vote by this voter on this item.
	VoteInserted VoteResult = "inserted"
	// VoteToggledOff removed an identical existing vote.
	VoteToggledOff VoteResult = "toggled_off"
	// VoteSwitched replaced the opposite existing vote.
	VoteSwitched VoteResult = "switched"
	// VoteRemoved is an explicit retraction.
	VoteRemoved VoteResult = "removed"
)

// Repository is the transactional persistence surface for the ledger.
type Repository interface {
	ApplyVote(ctx context.Context, contentID, voterID string, voteType models.VoteType) (VoteResult, *models.Aggregate, error)
	RemoveVote(ctx context.Context, contentID, voterID string) (agg *models.Aggregate, underflow bool, err error)
	InsertFlag(ctx context.Context, flag *models.FlagRecord, dedupe bool) (pending int, agg *models.Aggregate, err error)
	ResolveFlag(ctx context.Context, flagID, reviewerID, notes string, status models.FlagStatus) (*models.FlagRecord, error)
	GetAggregate(ctx context.Context, contentID string) (*models.Aggregate, error)
	ReconcileCounters(ctx context.Context) ([]Correction, error)
}

// Moderator is the slice of the moderation service the ledger drives: forced
// flagging when reports pile up, and rejection when a flag is upheld.
type Moderator interface {
	ForceFlag(ctx context.Context, contentID, reason string) error
	Reject(ctx context.Context, contentID, actorID, reason string) error
}

// Auditor records system-initiated corrections.
type Auditor interface {
	Record(ctx context.Context, component, contentID, reason string, detail map[string]interface{}) error
}

// Policy holds the ledger's configurable behaviour.
type Policy struct {
	// DedupeFlags keeps at most one pending flag per (content, reporter).
	DedupeFlags bool
	// FlagAutoThreshold forces content into the flagged state once this many
	// flags are pending. Zero disables the forced transition.
	FlagAutoThreshold int
}

// Service implements vote and flag submission over the ledger.
type Service struct {
	log       *zap.Logger
	repo      Repository
	cache     *redis.Cache
	moderator Moderator
	auditor   Auditor
	policy    Policy
}

// NewService creates the ledger service. cache may be nil.
func NewService(log *zap.Logger, repo Repository, cache *redis.Cache, moderator Moderator, auditor Auditor, policy Policy) *Service {
	return &Service{log: log, repo: repo, cache: cache, moderator: moderator, auditor: auditor, policy: policy}
}

// SubmitVote records a voter's judgment. A repeat of the same judgment
// toggles the vote off; the opposite judgment switches it. The returned
// aggregate reflects committed state.
func (s *Service) SubmitVote(ctx context.Context, contentID, voterID string, voteType models.VoteType) (VoteResult, *models.Aggregate, error) {
	if contentID == "" || voterID == "" {
		return "", nil, errors.Validation("content_id and voter_id are required")
	}
	if !voteType.Valid() {
		return "", nil, errors.Validation("unknown vote type: " + string(voteType))
	}

	result, agg, err := s.repo.ApplyVote(ctx, contentID, voterID, voteType)
	if err != nil {
		// a concurrent first vote by the same voter can win the insert race;
		// retrying lands on the toggle/switch path
		if errors.IsKind(err, errors.KindConflict) {
			result, agg, err = s.repo.ApplyVote(ctx, contentID, voterID, voteType)
		}
		if err != nil {
			return "", nil, errors.LogWithError(ctx, s.log, "failed to apply vote", err,
				zap.String("content_id", contentID))
		}
	}

	metrics.VotesApplied.WithLabelValues(string(result)).Inc()
	s.invalidateAggregate(ctx, contentID)
	s.log.Info("vote applied",
		zap.String("content_id", contentID),
		zap.String("result", string(result)),
		zap.String("vote_type", string(voteType)),
	)
	return result, agg, nil
}

// RemoveVote retracts the caller's vote. Counters never go below zero: a
// decrement that would underflow leaves the counter at zero and is recorded
// as an integrity fault instead of failing the retraction.
func (s *Service) RemoveVote(ctx context.Context, contentID, voterID string) (*models.Aggregate, error) {
	if contentID == "" || voterID == "" {
		return nil, errors.Validation("content_id and voter_id are required")
	}

	agg, underflow, err := s.repo.RemoveVote(ctx, contentID, voterID)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to remove vote", err,
			zap.String("content_id", contentID))
	}
	if underflow {
		errors.LogWithError(ctx, s.log, "vote counter underflow",
			errors.Integrity("counter already at zero on retraction", nil),
			zap.String("content_id", contentID))
		if s.auditor != nil {
			if aErr := s.auditor.Record(ctx, "ledger", contentID, "counter_underflow", map[string]interface{}{
				"operation": "remove_vote",
			}); aErr != nil {
				s.log.Warn("failed to audit counter underflow", zap.Error(aErr))
			}
		}
	}

	metrics.VotesApplied.WithLabelValues(string(VoteRemoved)).Inc()
	s.invalidateAggregate(ctx, contentID)
	return agg, nil
}

// SubmitFlag records a report against a content item. Crossing the pending
// flag threshold forces the item into the flagged state for moderator review.
func (s *Service) SubmitFlag(ctx context.Context, contentID, reporterID string, flagType models.FlagType, reason string) (*models.FlagRecord, *models.Aggregate, error) {
	if contentID == "" || reporterID == "" {
		return nil, nil, errors.Validation("content_id and reporter_id are required")
	}
	if !flagType.Valid() {
		return nil, nil, errors.Validation("unknown flag type: " + string(flagType))
	}

	flag := &models.FlagRecord{
		ID:         uuid.NewString(),
		ContentID:  contentID,
		ReporterID: reporterID,
		FlagType:   flagType,
		Reason:     reason,
		Status:     models.FlagPending,
		CreatedAt:  time.Now().UTC(),
	}
	pending, agg, err := s.repo.InsertFlag(ctx, flag, s.policy.DedupeFlags)
	if err != nil {
		return nil, nil, errors.LogWithError(ctx, s.log, "failed to insert flag", err,
			zap.String("content_id", contentID))
	}
	metrics.FlagsSubmitted.Inc()
	agg.PendingFlags = pending

	if s.policy.FlagAutoThreshold > 0 && pending >= s.policy.FlagAutoThreshold && !agg.IsFlagged {
		if err := s.moderator.ForceFlag(ctx, contentID, "pending flag threshold reached"); err != nil {
			// the flag itself is committed; escalation will retry on the
			// next report
			s.log.Warn("failed to force flagged state",
				zap.String("content_id", contentID), zap.Error(err))
		} else {
			agg.Status = models.StatusFlagged
			agg.IsFlagged = true
		}
	}

	s.invalidateAggregate(ctx, contentID)
	s.log.Info("flag submitted",
		zap.String("content_id", contentID),
		zap.String("flag_type", string(flagType)),
		zap.Int("pending", pending),
	)
	return flag, agg, nil
}

// ResolveFlag records a moderator's decision on a pending flag. Upholding the
// flag rejects the referenced content.
func (s *Service) ResolveFlag(ctx context.Context, flagID string, outcome models.FlagOutcome, notes string) (*models.FlagRecord, error) {
	authCtx := auth.FromContext(ctx)
	if !auth.IsModerator(authCtx) {
		return nil, errors.Authorization("resolving flags requires the moderator role")
	}
	if flagID == "" {
		return nil, errors.Validation("flag_id is required")
	}
	if !outcome.Valid() {
		return nil, errors.Validation("unknown outcome: " + string(outcome))
	}

	status := models.FlagDismissed
	if outcome == models.OutcomeUpheld {
		status = models.FlagReviewed
	}
	flag, err := s.repo.ResolveFlag(ctx, flagID, authCtx.Subject, notes, status)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to resolve flag", err,
			zap.String("flag_id", flagID))
	}

	if outcome == models.OutcomeUpheld {
		reason := flag.Reason
		if reason == "" {
			reason = string(flag.FlagType) + " flag upheld"
		}
		if err := s.moderator.Reject(ctx, flag.ContentID, authCtx.Subject, reason); err != nil {
			return nil, errors.LogWithError(ctx, s.log, "failed to reject content for upheld flag", err,
				zap.String("content_id", flag.ContentID))
		}
	}

	s.invalidateAggregate(ctx, flag.ContentID)
	s.log.Info("flag resolved",
		zap.String("flag_id", flagID),
		zap.String("outcome", string(outcome)),
	)
	return flag, nil
}

// GetAggregate returns the current counters and status for a content item,
// served from cache when fresh.
func (s *Service) GetAggregate(ctx context.Context, contentID string) (*models.Aggregate, error) {
	if contentID == "" {
		return nil, errors.Validation("content_id is required")
	}
	if s.cache != nil {
		var agg models.Aggregate
		if err := s.cache.Get(ctx, "aggregate", contentID, &agg); err == nil {
			return &agg, nil
		}
	}
	agg, err := s.repo.GetAggregate(ctx, contentID)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "failed to load aggregate", err,
			zap.String("content_id", contentID))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, "aggregate", contentID, agg, redis.TTLContentAggregate); err != nil {
			s.log.Warn("failed to cache aggregate", zap.String("content_id", contentID), zap.Error(err))
		}
	}
	return agg, nil
}

func (s *Service) invalidateAggregate(ctx context.Context, contentID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "aggregate", contentID); err != nil {
		s.log.Warn("failed to invalidate aggregate cache",
			zap.String("content_id", contentID), zap.Error(err))
	}
}
