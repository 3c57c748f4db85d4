package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"go.uber.org/zap"

	apperrors "github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/json"
)

// BaseRepository provides common database functionality shared by the
// pipeline's Postgres repositories.
type BaseRepository struct {
	db  *sql.DB
	log *zap.Logger
}

// NewBaseRepository creates a new base repository instance.
func NewBaseRepository(db *sql.DB, log *zap.Logger) *BaseRepository {
	return &BaseRepository{db: db, log: log}
}

// GetDB returns the underlying database connection.
func (r *BaseRepository) GetDB() *sql.DB {
	return r.db
}

// BeginTx starts a new transaction with context.
func (r *BaseRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	return tx, nil
}

// txAttempts bounds how often a transaction is retried on a retryable
// storage fault before the fault is surfaced as transient.
const txAttempts = 3

// InTx runs fn inside a transaction, committing on success and rolling back
// on error. Ledger writes and derived counter updates always go through this
// so they are never applied independently. Serialization failures, deadlocks,
// and connection faults are retried on a fresh transaction up to txAttempts
// times; what still fails comes back as a transient error. Domain errors
// surface immediately.
func (r *BaseRepository) InTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return runTxAttempts(ctx, func() error {
		tx, err := r.BeginTx(ctx)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			r.log.Error("failed to commit transaction", zap.Error(err))
			return err
		}
		return nil
	})
}

// runTxAttempts drives one attempt function under the bounded retry policy.
func runTxAttempts(ctx context.Context, attempt func() error) error {
	wrapped := func() error {
		if err := attempt(); err != nil {
			if IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second
	err := backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, txAttempts-1), ctx))
	if err != nil && IsRetryable(err) {
		return apperrors.Transient("storage fault persisted after retries", err)
	}
	return err
}

// IsRetryable reports whether err is a storage fault a fresh transaction may
// survive: a serialization failure, a deadlock, a connection-class Postgres
// error, or a dead pooled connection.
func IsRetryable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return true
		}
		return pqErr.Code.Class() == "08"
	}
	return false
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. The vote insert path relies on this to fall back to the
// update/toggle path on concurrent duplicate submissions.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ToJSONB marshals a map to JSONB ([]byte) for Postgres.
func ToJSONB(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// FromJSONB unmarshals JSONB ([]byte) from Postgres to a map.
func FromJSONB(b []byte) (map[string]interface{}, error) {
	if len(b) == 0 {
		return map[string]interface{}{}, nil
	}
	var m map[string]interface{}
	err := json.Unmarshal(b, &m)
	return m, err
}
