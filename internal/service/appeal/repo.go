package appeal

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// PostgresRepository persists appeals. A partial unique index on pending
// appeals enforces one open appeal per action at the storage layer.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the appeal repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "appeal")))}
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Appeal) error {
	_, err := r.GetDB().ExecContext(ctx,
		`INSERT INTO appeals (id, user_id, action_id, reason, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.UserID, a.ActionID, a.Reason, a.Status, a.CreatedAt)
	if repository.IsUniqueViolation(err) {
		return errors.Conflict("an appeal is already open for this action")
	}
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, appealID string) (*models.Appeal, error) {
	return r.get(ctx, r.GetDB().QueryRowContext, appealID, false)
}

func (r *PostgresRepository) Resolve(ctx context.Context, appealID, resolverID, resolution string, status models.AppealStatus) (*models.Appeal, error) {
	var a *models.Appeal
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = r.get(ctx, tx.QueryRowContext, appealID, true)
		if err != nil {
			return err
		}
		if a.Status != models.AppealPending {
			return errors.Conflict("appeal already resolved")
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE appeals SET status = $1, resolution = $2, resolved_by_id = $3, resolved_at = $4 WHERE id = $5`,
			status, resolution, resolverID, now, appealID); err != nil {
			return err
		}
		a.Status = status
		a.Resolution = resolution
		a.ResolvedByID = resolverID
		a.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Appeal, error) {
	rows, err := r.GetDB().QueryContext(ctx,
		`SELECT id, user_id, action_id, reason, status, resolution, resolved_by_id, created_at, resolved_at
		 FROM appeals WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appeals []models.Appeal
	for rows.Next() {
		var (
			a          models.Appeal
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActionID, &a.Reason, &a.Status,
			&a.Resolution, &a.ResolvedByID, &a.CreatedAt, &resolvedAt); err != nil {
			return nil, err
		}
		if resolvedAt.Valid {
			a.ResolvedAt = &resolvedAt.Time
		}
		appeals = append(appeals, a)
	}
	return appeals, rows.Err()
}

type queryRowFn func(ctx context.Context, query string, args ...interface{}) *sql.Row

func (r *PostgresRepository) get(ctx context.Context, queryRow queryRowFn, appealID string, forUpdate bool) (*models.Appeal, error) {
	query := `SELECT user_id, action_id, reason, status, resolution, resolved_by_id, created_at, resolved_at
	          FROM appeals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	a := &models.Appeal{ID: appealID}
	var resolvedAt sql.NullTime
	err := queryRow(ctx, query, appealID).
		Scan(&a.UserID, &a.ActionID, &a.Reason, &a.Status, &a.Resolution, &a.ResolvedByID, &a.CreatedAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appeal not found: " + appealID)
	}
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		a.ResolvedAt = &resolvedAt.Time
	}
	return a, nil
}
