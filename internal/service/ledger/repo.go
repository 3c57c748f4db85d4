package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// PostgresRepository persists vote and flag records. Every mutation locks the
// content row first, so concurrent votes on one item serialize and the
// counters stay consistent with the record rows.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the ledger repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "ledger")))}
}

func lockAggregate(ctx context.Context, tx *sql.Tx, contentID string) (*models.Aggregate, error) {
	agg := &models.Aggregate{ContentID: contentID}
	err := tx.QueryRowContext(ctx,
		`SELECT status, helpful_count, not_helpful_count, is_flagged
		 FROM content_items WHERE id = $1 FOR UPDATE`, contentID).
		Scan(&agg.Status, &agg.HelpfulCount, &agg.NotHelpfulCount, &agg.IsFlagged)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("content not found: " + contentID)
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func writeCounters(ctx context.Context, tx *sql.Tx, agg *models.Aggregate) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE content_items SET helpful_count = $1, not_helpful_count = $2 WHERE id = $3`,
		agg.HelpfulCount, agg.NotHelpfulCount, agg.ContentID)
	return err
}

func (r *PostgresRepository) ApplyVote(ctx context.Context, contentID, voterID string, voteType models.VoteType) (VoteResult, *models.Aggregate, error) {
	var (
		result VoteResult
		agg    *models.Aggregate
	)
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		agg, err = lockAggregate(ctx, tx, contentID)
		if err != nil {
			return err
		}

		var (
			voteID   string
			existing models.VoteType
		)
		err = tx.QueryRowContext(ctx,
			`SELECT id, vote_type FROM vote_records WHERE content_id = $1 AND voter_id = $2 FOR UPDATE`,
			contentID, voterID).Scan(&voteID, &existing)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO vote_records (id, content_id, voter_id, vote_type, created_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				uuid.NewString(), contentID, voterID, voteType, time.Now().UTC())
			if err != nil {
				if repository.IsUniqueViolation(err) {
					return errors.Conflict("concurrent duplicate vote")
				}
				return err
			}
			bump(agg, voteType, +1)
			result = VoteInserted
		case err != nil:
			return err
		case existing == voteType:
			if _, err := tx.ExecContext(ctx, `DELETE FROM vote_records WHERE id = $1`, voteID); err != nil {
				return err
			}
			bump(agg, voteType, -1)
			result = VoteToggledOff
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vote_records SET vote_type = $1, created_at = $2 WHERE id = $3`,
				voteType, time.Now().UTC(), voteID); err != nil {
				return err
			}
			bump(agg, existing, -1)
			bump(agg, voteType, +1)
			result = VoteSwitched
		}
		return writeCounters(ctx, tx, agg)
	})
	if err != nil {
		return "", nil, err
	}
	return result, agg, nil
}

func (r *PostgresRepository) RemoveVote(ctx context.Context, contentID, voterID string) (*models.Aggregate, bool, error) {
	var (
		agg       *models.Aggregate
		underflow bool
	)
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		agg, err = lockAggregate(ctx, tx, contentID)
		if err != nil {
			return err
		}

		var existing models.VoteType
		err = tx.QueryRowContext(ctx,
			`DELETE FROM vote_records WHERE content_id = $1 AND voter_id = $2 RETURNING vote_type`,
			contentID, voterID).Scan(&existing)
		if err == sql.ErrNoRows {
			return errors.NotFound("no vote to remove")
		}
		if err != nil {
			return err
		}

		if counter(agg, existing) == 0 {
			underflow = true
		} else {
			bump(agg, existing, -1)
		}
		return writeCounters(ctx, tx, agg)
	})
	if err != nil {
		return nil, false, err
	}
	return agg, underflow, nil
}

func (r *PostgresRepository) InsertFlag(ctx context.Context, flag *models.FlagRecord, dedupe bool) (int, *models.Aggregate, error) {
	var (
		pending int
		agg     *models.Aggregate
	)
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		agg, err = lockAggregate(ctx, tx, flag.ContentID)
		if err != nil {
			return err
		}

		if dedupe {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM flag_records
				 WHERE content_id = $1 AND reporter_id = $2 AND status = 'pending')`,
				flag.ContentID, flag.ReporterID).Scan(&exists)
			if err != nil {
				return err
			}
			if exists {
				return errors.Conflict("reporter already has a pending flag on this content")
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO flag_records (id, content_id, reporter_id, flag_type, reason, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			flag.ID, flag.ContentID, flag.ReporterID, flag.FlagType, flag.Reason, flag.Status, flag.CreatedAt); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM flag_records WHERE content_id = $1 AND status = 'pending'`,
			flag.ContentID).Scan(&pending)
	})
	if err != nil {
		return 0, nil, err
	}
	return pending, agg, nil
}

func (r *PostgresRepository) ResolveFlag(ctx context.Context, flagID, reviewerID, notes string, status models.FlagStatus) (*models.FlagRecord, error) {
	flag := &models.FlagRecord{ID: flagID}
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		var reviewedAt sql.NullTime
		err := tx.QueryRowContext(ctx,
			`SELECT content_id, reporter_id, flag_type, reason, status, reviewer_id, notes, created_at, reviewed_at
			 FROM flag_records WHERE id = $1 FOR UPDATE`, flagID).
			Scan(&flag.ContentID, &flag.ReporterID, &flag.FlagType, &flag.Reason, &flag.Status,
				&flag.ReviewerID, &flag.Notes, &flag.CreatedAt, &reviewedAt)
		if err == sql.ErrNoRows {
			return errors.NotFound("flag not found: " + flagID)
		}
		if err != nil {
			return err
		}
		if flag.Status != models.FlagPending {
			return errors.Conflict("flag already resolved")
		}

		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE flag_records SET status = $1, reviewer_id = $2, notes = $3, reviewed_at = $4 WHERE id = $5`,
			status, reviewerID, notes, now, flagID); err != nil {
			return err
		}
		flag.Status = status
		flag.ReviewerID = reviewerID
		flag.Notes = notes
		flag.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flag, nil
}

func (r *PostgresRepository) GetAggregate(ctx context.Context, contentID string) (*models.Aggregate, error) {
	agg := &models.Aggregate{ContentID: contentID}
	err := r.GetDB().QueryRowContext(ctx,
		`SELECT c.status, c.helpful_count, c.not_helpful_count, c.is_flagged,
		        (SELECT COUNT(*) FROM flag_records f WHERE f.content_id = c.id AND f.status = 'pending')
		 FROM content_items c WHERE c.id = $1`, contentID).
		Scan(&agg.Status, &agg.HelpfulCount, &agg.NotHelpfulCount, &agg.IsFlagged, &agg.PendingFlags)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("content not found: " + contentID)
	}
	if err != nil {
		return nil, err
	}
	return agg, nil
}

func bump(agg *models.Aggregate, voteType models.VoteType, delta int) {
	if voteType == models.VoteHelpful {
		agg.HelpfulCount += delta
	} else {
		agg.NotHelpfulCount += delta
	}
}

func counter(agg *models.Aggregate, voteType models.VoteType) int {
	if voteType == models.VoteHelpful {
		return agg.HelpfulCount
	}
	return agg.NotHelpfulCount
}
