package moderation

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/json"
)

// PostgresRepository persists content items and moderation actions.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the moderation repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "moderation")))}
}

func (r *PostgresRepository) InsertContent(ctx context.Context, item *models.ContentItem, submit *models.ModerationAction) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content_items (id, author_id, body, status, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			item.ID, item.AuthorID, item.Body, item.Status, item.CreatedAt); err != nil {
			return err
		}
		return insertAction(ctx, tx, submit)
	})
}

func (r *PostgresRepository) GetContent(ctx context.Context, contentID string) (*models.ContentItem, error) {
	item := &models.ContentItem{ID: contentID}
	var (
		analysis    []byte
		moderatedAt sql.NullTime
	)
	err := r.GetDB().QueryRowContext(ctx,
		`SELECT author_id, body, status, analysis, helpful_count, not_helpful_count, is_flagged, created_at, moderated_at
		 FROM content_items WHERE id = $1`, contentID).
		Scan(&item.AuthorID, &item.Body, &item.Status, &analysis,
			&item.HelpfulCount, &item.NotHelpfulCount, &item.IsFlagged, &item.CreatedAt, &moderatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("content not found: " + contentID)
	}
	if err != nil {
		return nil, err
	}
	if moderatedAt.Valid {
		item.ModeratedAt = &moderatedAt.Time
	}
	if len(analysis) > 0 {
		var a models.Analysis
		if err := json.Unmarshal(analysis, &a); err != nil {
			return nil, err
		}
		item.Analysis = &a
	}
	return item, nil
}

func (r *PostgresRepository) Transition(ctx context.Context, action *models.ModerationAction) (*models.Aggregate, string, bool, error) {
	var (
		agg      *models.Aggregate
		authorID string
		changed  bool
	)
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		agg = &models.Aggregate{ContentID: action.TargetID}
		err := tx.QueryRowContext(ctx,
			`SELECT author_id, status, helpful_count, not_helpful_count, is_flagged
			 FROM content_items WHERE id = $1 FOR UPDATE`, action.TargetID).
			Scan(&authorID, &agg.Status, &agg.HelpfulCount, &agg.NotHelpfulCount, &agg.IsFlagged)
		if err == sql.ErrNoRows {
			return errors.NotFound("content not found: " + action.TargetID)
		}
		if err != nil {
			return err
		}

		// re-flagging flagged content is a no-op, not a conflict: several
		// reporters can cross the threshold in close succession
		if action.Action == models.ActionAutoFlag && agg.Status == models.StatusFlagged {
			return nil
		}

		to, err := Next(agg.Status, action.Action)
		if err != nil {
			return err
		}
		flagged := to == models.StatusFlagged
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE content_items SET status = $1, is_flagged = $2, moderated_at = $3 WHERE id = $4`,
			to, flagged, now, action.TargetID); err != nil {
			return err
		}
		if err := insertAction(ctx, tx, action); err != nil {
			return err
		}

		// approval closes out whatever reports were still open
		if to == models.StatusApproved {
			if _, err := tx.ExecContext(ctx,
				`UPDATE flag_records SET status = 'dismissed', reviewer_id = $1, reviewed_at = $2
				 WHERE content_id = $3 AND status = 'pending'`,
				action.ActorID, now, action.TargetID); err != nil {
				return err
			}
		}

		agg.Status = to
		agg.IsFlagged = flagged
		changed = true
		return nil
	})
	if err != nil {
		return nil, "", false, err
	}
	return agg, authorID, changed, nil
}

func (r *PostgresRepository) RecordAction(ctx context.Context, action *models.ModerationAction) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		return insertAction(ctx, tx, action)
	})
}

func (r *PostgresRepository) GetAction(ctx context.Context, actionID string) (*models.ModerationAction, error) {
	action := &models.ModerationAction{ID: actionID}
	var durationS sql.NullInt64
	err := r.GetDB().QueryRowContext(ctx,
		`SELECT target_kind, target_id, actor_id, action, reason, duration_s, created_at
		 FROM moderation_actions WHERE id = $1`, actionID).
		Scan(&action.TargetKind, &action.TargetID, &action.ActorID, &action.Action,
			&action.Reason, &durationS, &action.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("moderation action not found: " + actionID)
	}
	if err != nil {
		return nil, err
	}
	if durationS.Valid {
		d := time.Duration(durationS.Int64) * time.Second
		action.Duration = &d
	}
	return action, nil
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.ContentStatus, limit, offset int) ([]models.ContentItem, error) {
	rows, err := r.GetDB().QueryContext(ctx,
		`SELECT id, author_id, body, status, helpful_count, not_helpful_count, is_flagged, created_at
		 FROM content_items WHERE status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		if err := rows.Scan(&item.ID, &item.AuthorID, &item.Body, &item.Status,
			&item.HelpfulCount, &item.NotHelpfulCount, &item.IsFlagged, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func insertAction(ctx context.Context, tx *sql.Tx, action *models.ModerationAction) error {
	var durationS sql.NullInt64
	if action.Duration != nil {
		durationS = sql.NullInt64{Int64: int64(action.Duration.Seconds()), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO moderation_actions (id, target_kind, target_id, actor_id, action, reason, duration_s, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		action.ID, action.TargetKind, action.TargetID, action.ActorID,
		action.Action, action.Reason, durationS, action.CreatedAt)
	return err
}
