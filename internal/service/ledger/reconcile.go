package ledger

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/pkg/errors"
	"github.com/campusvoice/contenttrust/pkg/metrics"
)

// Correction records one counter field brought back in line with the ledger.
type Correction struct {
	ContentID string `json:"content_id"`
	Field     string `json:"field"`
	Stored    int    `json:"stored"`
	Actual    int    `json:"actual"`
}

// Reconcile recomputes the derived counters from the vote records and fixes
// any drift. Each correction is an integrity fault: logged, counted, and
// written to the audit trail. Interactive callers never see these faults.
func (s *Service) Reconcile(ctx context.Context) ([]Correction, error) {
	corrections, err := s.repo.ReconcileCounters(ctx)
	if err != nil {
		return nil, errors.LogWithError(ctx, s.log, "reconciliation run failed", err)
	}
	for _, c := range corrections {
		metrics.DriftCorrections.Inc()
		errors.LogWithError(ctx, s.log, "counter drift corrected",
			errors.Integrity("stored counter diverged from ledger", nil),
			zap.String("content_id", c.ContentID),
			zap.String("field", c.Field),
			zap.Int("stored", c.Stored),
			zap.Int("actual", c.Actual),
		)
		if s.auditor != nil {
			if err := s.auditor.Record(ctx, "reconciliation", c.ContentID, "drift-correction", map[string]interface{}{
				"field":  c.Field,
				"stored": c.Stored,
				"actual": c.Actual,
			}); err != nil {
				s.log.Warn("failed to audit drift correction", zap.Error(err))
			}
		}
		s.invalidateAggregate(ctx, c.ContentID)
	}
	if len(corrections) > 0 {
		s.log.Warn("reconciliation corrected drifted counters", zap.Int("corrections", len(corrections)))
	}
	return corrections, nil
}

// ReconcileCounters finds content rows whose counters disagree with the vote
// records and rewrites them from the records, all in one transaction.
func (r *PostgresRepository) ReconcileCounters(ctx context.Context) ([]Correction, error) {
	var corrections []Correction
	err := r.InTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT c.id, c.helpful_count, c.not_helpful_count,
			        COALESCE(a.helpful, 0), COALESCE(a.not_helpful, 0)
			 FROM content_items c
			 LEFT JOIN (
			     SELECT content_id,
			            COUNT(*) FILTER (WHERE vote_type = 'helpful')     AS helpful,
			            COUNT(*) FILTER (WHERE vote_type = 'not_helpful') AS not_helpful
			     FROM vote_records GROUP BY content_id
			 ) a ON a.content_id = c.id
			 WHERE c.helpful_count <> COALESCE(a.helpful, 0)
			    OR c.not_helpful_count <> COALESCE(a.not_helpful, 0)
			 FOR UPDATE OF c`)
		if err != nil {
			return err
		}
		type drifted struct {
			id                       string
			storedHelpful, storedNot int
			actualHelpful, actualNot int
		}
		var found []drifted
		for rows.Next() {
			var d drifted
			if err := rows.Scan(&d.id, &d.storedHelpful, &d.storedNot, &d.actualHelpful, &d.actualNot); err != nil {
				rows.Close()
				return err
			}
			found = append(found, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, d := range found {
			if _, err := tx.ExecContext(ctx,
				`UPDATE content_items SET helpful_count = $1, not_helpful_count = $2 WHERE id = $3`,
				d.actualHelpful, d.actualNot, d.id); err != nil {
				return err
			}
			if d.storedHelpful != d.actualHelpful {
				corrections = append(corrections, Correction{
					ContentID: d.id, Field: "helpful_count",
					Stored: d.storedHelpful, Actual: d.actualHelpful,
				})
			}
			if d.storedNot != d.actualNot {
				corrections = append(corrections, Correction{
					ContentID: d.id, Field: "not_helpful_count",
					Stored: d.storedNot, Actual: d.actualNot,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrections, nil
}
