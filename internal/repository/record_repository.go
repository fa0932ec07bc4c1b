// internal/repository/record_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"macscan/internal/database"
	"macscan/internal/model"
)

// recordRepository implements RecordRepository on Postgres
type recordRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.DB, logger *zap.Logger) RecordRepository {
	return &recordRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the current state of a record, keyed by port ID.
func (r *recordRepository) Upsert(ctx context.Context, rec *model.Record) error {
	query := `
		INSERT INTO scan_records (
			port_id, status, mac, first_seen, last_attempt, attempt_count, last_error, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (port_id) DO UPDATE SET
			status = EXCLUDED.status, mac = EXCLUDED.mac,
			last_attempt = EXCLUDED.last_attempt, attempt_count = EXCLUDED.attempt_count,
			last_error = EXCLUDED.last_error, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.PortID, rec.Status, rec.MAC, rec.FirstSeen,
		rec.LastAttempt, rec.AttemptCount, rec.LastError, rec.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to upsert scan record", zap.Error(err), zap.String("port_id", rec.PortID))
		return fmt.Errorf("failed to upsert scan record: %w", err)
	}

	return nil
}

// ListAll returns every persisted record ordered by first appearance.
func (r *recordRepository) ListAll(ctx context.Context) ([]*model.Record, error) {
	query := `
		SELECT port_id, status, mac, first_seen, last_attempt, attempt_count, last_error, updated_at
		FROM scan_records ORDER BY first_seen, port_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan records: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		rec := &model.Record{}
		if err := rows.Scan(
			&rec.PortID, &rec.Status, &rec.MAC, &rec.FirstSeen,
			&rec.LastAttempt, &rec.AttemptCount, &rec.LastError, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record row iteration failed: %w", err)
	}

	return records, nil
}

// AppendAttempt records one identification attempt in the audit log.
func (r *recordRepository) AppendAttempt(ctx context.Context, rec *model.Record) error {
	attemptedAt := time.Now()
	if rec.LastAttempt != nil {
		attemptedAt = *rec.LastAttempt
	}

	query := `
		INSERT INTO scan_attempts (port_id, status, mac, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.PortID, rec.Status, rec.MAC, rec.LastError, attemptedAt,
	)

	if err != nil {
		r.logger.Error("Failed to append scan attempt", zap.Error(err), zap.String("port_id", rec.PortID))
		return fmt.Errorf("failed to append scan attempt: %w", err)
	}

	return nil
}

// DeleteByPortIDs removes persisted records after an operator clear.
func (r *recordRepository) DeleteByPortIDs(ctx context.Context, portIDs []string) error {
	if len(portIDs) == 0 {
		return nil
	}

	query := `DELETE FROM scan_records WHERE port_id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(portIDs)); err != nil {
		return fmt.Errorf("failed to delete scan records: %w", err)
	}

	return nil
}
