package scoring

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
	"github.com/campusvoice/contenttrust/pkg/json"
)

// PostgresRepository persists analysis logs and content snapshots.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the scoring repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "scoring")))}
}

func (r *PostgresRepository) InsertAnalysisLog(ctx context.Context, entry *models.AnalysisLog) error {
	analysisJSON, err := json.Marshal(entry.Analysis)
	if err != nil {
		return err
	}
	var contentID sql.NullString
	if entry.ContentID != "" {
		contentID = sql.NullString{String: entry.ContentID, Valid: true}
	}
	_, err = r.GetDB().ExecContext(ctx,
		`INSERT INTO analysis_logs (id, content_id, analysis, created_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, contentID, analysisJSON, entry.CreatedAt)
	return err
}

func (r *PostgresRepository) SaveContentAnalysis(ctx context.Context, contentID string, analysis models.Analysis) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	res, err := r.GetDB().ExecContext(ctx,
		`UPDATE content_items SET analysis = $1 WHERE id = $2`, analysisJSON, contentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepository) ListForScoring(ctx context.Context, afterID string, limit int, includeAnalyzed bool) ([]models.ContentItem, error) {
	query := `SELECT id, body FROM content_items WHERE ($1 = '' OR id::text > $1)`
	if !includeAnalyzed {
		query += ` AND analysis IS NULL`
	}
	query += ` ORDER BY id LIMIT $2`
	rows, err := r.GetDB().QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		if err := rows.Scan(&item.ID, &item.Body); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) GetCheckpoint(ctx context.Context, jobName string) (string, error) {
	var lastSeen sql.NullString
	err := r.GetDB().QueryRowContext(ctx,
		`SELECT last_seen_id FROM job_checkpoints WHERE job_name = $1`, jobName).Scan(&lastSeen)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return lastSeen.String, nil
}

func (r *PostgresRepository) SetCheckpoint(ctx context.Context, jobName, lastSeenID string) error {
	var lastSeen sql.NullString
	if lastSeenID != "" {
		lastSeen = sql.NullString{String: lastSeenID, Valid: true}
	}
	_, err := r.GetDB().ExecContext(ctx,
		`INSERT INTO job_checkpoints (job_name, last_seen_id, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (job_name) DO UPDATE SET last_seen_id = $2, updated_at = now()`,
		jobName, lastSeen)
	return err
}
