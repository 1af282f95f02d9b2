// Package conflict decides whether a requested interval and equipment
// set can be admitted against the existing reservations.
package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomres/internal/models"
)

// ErrInvalidInterval is returned when the requested end is not after
// the requested start.
var ErrInvalidInterval = errors.New("end time must be after start time")

// ErrInvalidQuantity is returned when an equipment line requests a
// non-positive quantity.
var ErrInvalidQuantity = errors.New("equipment quantity must be positive")

// ErrDuplicateEquipment is returned when two lines in one request name
// the same equipment type. Checked per line, such lines would each be
// validated against the stock alone and together could exceed it.
var ErrDuplicateEquipment = errors.New("duplicate equipment type in request")

// Store provides the reservation queries the detector needs.
type Store interface {
	// FindOverlapping returns reservations on the room whose half-open
	// interval overlaps [start, end) and whose status is in statuses.
	// excludeID skips a reservation being re-validated against itself;
	// empty string excludes nothing.
	FindOverlapping(ctx context.Context, roomID int64, start, end time.Time, statuses []models.Status, excludeID string) ([]models.Reservation, error)

	// CommittedQuantity returns the summed quantity of an equipment type
	// across all approved/in-progress reservations overlapping [start, end),
	// regardless of room. excludeID as above.
	CommittedQuantity(ctx context.Context, equipmentTypeID int64, start, end time.Time, excludeID string) (int, error)
}

// Catalog provides the read-only room/stock lookups.
type Catalog interface {
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetEquipmentStock(ctx context.Context, id int64) (int, error)
}

// Detector checks candidate reservations against the store and catalog.
type Detector struct {
	store   Store
	catalog Catalog
}

// NewDetector creates a conflict detector.
func NewDetector(store Store, catalog Catalog) *Detector {
	return &Detector{store: store, catalog: catalog}
}

// CheckAvailability decides whether [start, end) on the room with the
// given equipment lines can be admitted. excludeID lets a reservation
// being re-validated (during its own approval) skip itself.
//
// Returns nil when the slot is free, *Error for a conflict, and other
// errors for invalid input or store failures. Pending reservations never
// block: only approved and in-progress ones occupy rooms and stock.
func (d *Detector) CheckAvailability(ctx context.Context, roomID int64, start, end time.Time, lines []models.EquipmentLine, excludeID string) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}

	if _, err := d.catalog.GetRoom(ctx, roomID); err != nil {
		return err
	}

	colliding, err := d.store.FindOverlapping(ctx, roomID, start, end, models.BlockingStatuses, excludeID)
	if err != nil {
		return fmt.Errorf("find overlapping: %w", err)
	}
	if len(colliding) > 0 {
		ids := make([]string, len(colliding))
		for i, r := range colliding {
			ids[i] = r.ID
		}
		return &Error{Code: CodeRoomUnavailable, CollidingIDs: ids}
	}

	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if seen[line.EquipmentTypeID] {
			return ErrDuplicateEquipment
		}
		seen[line.EquipmentTypeID] = true

		stock, err := d.catalog.GetEquipmentStock(ctx, line.EquipmentTypeID)
		if err != nil {
			return err
		}
		committed, err := d.store.CommittedQuantity(ctx, line.EquipmentTypeID, start, end, excludeID)
		if err != nil {
			return fmt.Errorf("committed quantity: %w", err)
		}
		if committed+line.Quantity > stock {
			return &Error{
				Code:            CodeEquipmentUnavailable,
				EquipmentTypeID: line.EquipmentTypeID,
				Shortfall:       committed + line.Quantity - stock,
			}
		}
	}

	return nil
}
