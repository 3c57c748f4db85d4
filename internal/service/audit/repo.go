package audit

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
)

// PostgresRepository persists audit entries. The table is insert-only; no
// update or delete statements exist here on purpose.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the audit repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "audit")))}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *models.AuditEntry) error {
	detail, err := repository.ToJSONB(entry.Detail)
	if err != nil {
		return err
	}
	var contentID sql.NullString
	if entry.ContentID != "" {
		contentID = sql.NullString{String: entry.ContentID, Valid: true}
	}
	_, err = r.GetDB().ExecContext(ctx,
		`INSERT INTO audit_entries (id, component, content_id, reason, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Component, contentID, entry.Reason, detail, entry.CreatedAt)
	return err
}

func (r *PostgresRepository) ListByContent(ctx context.Context, contentID string, limit int) ([]models.AuditEntry, error) {
	rows, err := r.GetDB().QueryContext(ctx,
		`SELECT id, component, content_id, reason, detail, created_at FROM audit_entries
		 WHERE content_id = $1 ORDER BY created_at DESC LIMIT $2`, contentID, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (r *PostgresRepository) ListByComponent(ctx context.Context, component string, limit int) ([]models.AuditEntry, error) {
	rows, err := r.GetDB().QueryContext(ctx,
		`SELECT id, component, content_id, reason, detail, created_at FROM audit_entries
		 WHERE component = $1 ORDER BY created_at DESC LIMIT $2`, component, limit)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.AuditEntry, error) {
	defer rows.Close()
	var entries []models.AuditEntry
	for rows.Next() {
		var (
			entry     models.AuditEntry
			contentID sql.NullString
			detail    []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Component, &contentID, &entry.Reason, &detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.ContentID = contentID.String
		m, err := repository.FromJSONB(detail)
		if err != nil {
			return nil, err
		}
		entry.Detail = m
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
