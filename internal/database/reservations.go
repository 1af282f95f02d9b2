package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"roomres/internal/models"
)

// Boundary selects which interval edge FindByStatusAndBoundary compares.
type Boundary string

const (
	BoundaryStart Boundary = "start_time"
	BoundaryEnd   Boundary = "end_time"
)

// CreateReservation inserts a reservation together with its equipment
// lines in one transaction. The caller holds the per-room lock and has
// already re-run the availability check under it.
//
// All timestamps are normalized to UTC before binding: the driver
// stores them as text with the zone offset, and the interval queries
// compare those strings lexically, so mixed offsets would make
// overlapping reservations invisible to each other.
func (db *DB) CreateReservation(ctx context.Context, res *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservations (
			id, user_id, room_id, start_time, end_time,
			status, rejection_reason, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.UserID, res.RoomID, res.StartTime, res.EndTime,
		res.Status, res.RejectionReason, res.CreatedAt, res.UpdatedAt, res.Version,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	for _, line := range res.Equipment {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reservation_equipment (reservation_id, equipment_type_id, quantity)
			VALUES (?, ?, ?)`,
			res.ID, line.EquipmentTypeID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert equipment line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetReservation returns a reservation with its equipment lines, or
// ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := db.QueryRowContext(ctx, `
		SELECT id, user_id, room_id, start_time, end_time,
		       status, rejection_reason, created_at, updated_at, version
		FROM reservations WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.UserID, &r.RoomID, &r.StartTime, &r.EndTime,
		&r.Status, &r.RejectionReason, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	if err := db.loadEquipment(ctx, []*models.Reservation{&r}); err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateStatus performs a compare-and-set status transition: the update
// only applies if the stored status and version still match what the
// caller read. Returns ErrConcurrentModification when the row moved
// underneath the caller, ErrNotFound when the id does not exist.
func (db *DB) UpdateStatus(ctx context.Context, id string, from models.Status, version int64, to models.Status, rejectionReason string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, rejection_reason = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND status = ? AND version = ?`,
		to, rejectionReason, time.Now().UTC(), id, from, version,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM reservations WHERE id = ?`, id,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check existence: %w", err)
		}
		return ErrConcurrentModification
	}
	return nil
}

// FindOverlapping returns reservations on the room whose half-open
// interval [start_time, end_time) overlaps [start, end) and whose status
// is in statuses. A reservation ending at start or starting at end does
// not overlap. excludeID skips one reservation; empty excludes none.
func (db *DB) FindOverlapping(ctx context.Context, roomID int64, start, end time.Time, statuses []models.Status, excludeID string) ([]models.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders, args := statusArgs(statuses)
	args = append([]interface{}{roomID, end.UTC(), start.UTC()}, args...)
	args = append(args, excludeID)

	query := fmt.Sprintf(`
		SELECT id, user_id, room_id, start_time, end_time,
		       status, rejection_reason, created_at, updated_at, version
		FROM reservations
		WHERE room_id = ?
		  AND start_time < ?
		  AND end_time > ?
		  AND status IN (%s)
		  AND id != ?
		ORDER BY start_time`, placeholders)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	defer rows.Close()

	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, err
	}

	refs := make([]*models.Reservation, len(reservations))
	for i := range reservations {
		refs[i] = &reservations[i]
	}
	if err := db.loadEquipment(ctx, refs); err != nil {
		return nil, err
	}
	return reservations, nil
}

// CommittedQuantity returns the summed quantity of an equipment type
// held by approved/in-progress reservations overlapping [start, end),
// across all rooms.
func (db *DB) CommittedQuantity(ctx context.Context, equipmentTypeID int64, start, end time.Time, excludeID string) (int, error) {
	var total sql.NullInt64
	err := db.QueryRowContext(ctx, `
		SELECT SUM(re.quantity)
		FROM reservation_equipment re
		JOIN reservations r ON r.id = re.reservation_id
		WHERE re.equipment_type_id = ?
		  AND r.start_time < ?
		  AND r.end_time > ?
		  AND r.status IN (?, ?)
		  AND r.id != ?`,
		equipmentTypeID, end.UTC(), start.UTC(),
		models.StatusApproved, models.StatusInProgress, excludeID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("committed quantity: %w", err)
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

// FindByStatusAndBoundary returns reservations in the given statuses
// whose selected interval edge is at or before cutoff. Used by the
// sweeper to collect time-eligible reservations.
func (db *DB) FindByStatusAndBoundary(ctx context.Context, statuses []models.Status, boundary Boundary, cutoff time.Time) ([]models.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	var column string
	switch boundary {
	case BoundaryStart:
		column = "start_time"
	case BoundaryEnd:
		column = "end_time"
	default:
		return nil, fmt.Errorf("unknown boundary %q", boundary)
	}

	placeholders, args := statusArgs(statuses)
	args = append(args, cutoff.UTC())

	query := fmt.Sprintf(`
		SELECT id, user_id, room_id, start_time, end_time,
		       status, rejection_reason, created_at, updated_at, version
		FROM reservations
		WHERE status IN (%s) AND %s <= ?
		ORDER BY %s`, placeholders, column, column)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find by boundary: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// GetUserReservations returns all reservations of a user, newest first.
func (db *DB) GetUserReservations(ctx context.Context, userID int64) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, room_id, start_time, end_time,
		       status, rejection_reason, created_at, updated_at, version
		FROM reservations
		WHERE user_id = ?
		ORDER BY start_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user reservations: %w", err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

func scanReservations(rows *sql.Rows) ([]models.Reservation, error) {
	var reservations []models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.RoomID, &r.StartTime, &r.EndTime,
			&r.Status, &r.RejectionReason, &r.CreatedAt, &r.UpdatedAt, &r.Version,
		); err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

func (db *DB) loadEquipment(ctx context.Context, reservations []*models.Reservation) error {
	for _, r := range reservations {
		rows, err := db.QueryContext(ctx, `
			SELECT equipment_type_id, quantity
			FROM reservation_equipment
			WHERE reservation_id = ?
			ORDER BY equipment_type_id`, r.ID)
		if err != nil {
			return fmt.Errorf("load equipment: %w", err)
		}

		var lines []models.EquipmentLine
		for rows.Next() {
			var line models.EquipmentLine
			if err := rows.Scan(&line.EquipmentTypeID, &line.Quantity); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, line)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		r.Equipment = lines
	}
	return nil
}

func statusArgs(statuses []models.Status) (string, []interface{}) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	return placeholders, args
}
