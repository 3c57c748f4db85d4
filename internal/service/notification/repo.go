package notification

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/internal/models"
	"github.com/campusvoice/contenttrust/internal/repository"
	"github.com/campusvoice/contenttrust/pkg/errors"
)

// PostgresRepository persists notifications.
type PostgresRepository struct {
	*repository.BaseRepository
}

// NewPostgresRepository creates the notification repository.
func NewPostgresRepository(db *sql.DB, log *zap.Logger) *PostgresRepository {
	return &PostgresRepository{BaseRepository: repository.NewBaseRepository(db, log.With(zap.String("repo", "notification")))}
}

func (r *PostgresRepository) Insert(ctx context.Context, n *models.Notification) error {
	payload, err := repository.ToJSONB(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.GetDB().ExecContext(ctx,
		`INSERT INTO notifications (id, recipient_id, type, payload, action_required, appeal_allowed, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.RecipientID, n.Type, payload, n.ActionRequired, n.AppealAllowed, n.Read, n.CreatedAt)
	return err
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `SELECT id, recipient_id, type, payload, action_required, appeal_allowed, read, created_at
	          FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.GetDB().QueryContext(ctx, query, recipientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notices []models.Notification
	for rows.Next() {
		var (
			n       models.Notification
			payload []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Type, &payload,
			&n.ActionRequired, &n.AppealAllowed, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		m, err := repository.FromJSONB(payload)
		if err != nil {
			return nil, err
		}
		n.Payload = m
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (r *PostgresRepository) MarkRead(ctx context.Context, notificationID, recipientID string) error {
	res, err := r.GetDB().ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`,
		notificationID, recipientID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFound("notification not found: " + notificationID)
	}
	return nil
}

func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.GetDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`,
		recipientID).Scan(&count)
	return count, err
}
