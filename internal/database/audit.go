package database

import (
	"context"
	"fmt"
	"time"

	"roomres/internal/models"
)

// AuditRecord is one persisted lifecycle transition.
type AuditRecord struct {
	ID            int64
	ReservationID string
	ActorID       int64
	FromStatus    models.Status
	ToStatus      models.Status
	Reason        string
	CreatedAt     time.Time
}

// InsertAuditRecord appends a transition to the audit log.
func (db *DB) InsertAuditRecord(ctx context.Context, rec *AuditRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	result, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (reservation_id, actor_id, from_status, to_status, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ReservationID, rec.ActorID, rec.FromStatus, rec.ToStatus, rec.Reason, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	rec.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	return nil
}

// AuditRecordsBetween returns transitions recorded in [from, to),
// oldest first.
func (db *DB) AuditRecordsBetween(ctx context.Context, from, to time.Time) ([]AuditRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reservation_id, actor_id, from_status, to_status, reason, created_at
		FROM audit_log
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at, id`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("audit records: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(
			&rec.ID, &rec.ReservationID, &rec.ActorID,
			&rec.FromStatus, &rec.ToStatus, &rec.Reason, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteAuditBefore removes audit records older than cutoff and returns
// how many were deleted. Reservations themselves are never deleted.
func (db *DB) DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete audit records: %w", err)
	}
	return result.RowsAffected()
}
