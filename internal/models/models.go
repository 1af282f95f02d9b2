// Package models defines the core reservation domain types.
package models

import "time"

// RoomType classifies a bookable room.
type RoomType string

const (
	RoomTypeLaboratory   RoomType = "laboratory"
	RoomTypeAmphitheater RoomType = "amphitheater"
	RoomTypeOther        RoomType = "other"
)

// Valid reports whether the room type is one of the known values.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeLaboratory, RoomTypeAmphitheater, RoomTypeOther:
		return true
	}
	return false
}

// Status represents the lifecycle status of a reservation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// BlockingStatuses are the statuses that occupy a room and commit
// equipment stock. Pending reservations are provisional and never block.
var BlockingStatuses = []Status{StatusApproved, StatusInProgress}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Room represents a bookable room. Immutable for the reservation core;
// owned by the catalog.
type Room struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Type     RoomType `json:"type"`
	Capacity int      `json:"capacity"`
}

// EquipmentType represents a finite-stock bookable item.
type EquipmentType struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TotalStock int    `json:"total_stock"`
}

// EquipmentLine is a requested quantity of one equipment type,
// belonging to exactly one reservation.
type EquipmentLine struct {
	EquipmentTypeID int64 `json:"equipment_type_id"`
	Quantity        int   `json:"quantity"`
}

// Reservation represents a booking of a room for a time interval,
// optionally with equipment. Intervals are half-open: [StartTime, EndTime).
type Reservation struct {
	ID              string          `json:"id"`
	UserID          int64           `json:"user_id"`
	RoomID          int64           `json:"room_id"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Status          Status          `json:"status"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Equipment       []EquipmentLine `json:"equipment,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int64           `json:"version"`
}

// Overlaps reports whether the reservation interval overlaps [start, end).
// Half-open semantics: a reservation ending exactly at start, or starting
// exactly at end, does not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}

// IsBlocking reports whether the reservation occupies its room and
// commits its equipment stock.
func (r *Reservation) IsBlocking() bool {
	return r.Status == StatusApproved || r.Status == StatusInProgress
}

// EquipmentQuantity returns the quantity requested for an equipment type,
// or zero if the reservation has no line for it.
func (r *Reservation) EquipmentQuantity(equipmentTypeID int64) int {
	for _, line := range r.Equipment {
		if line.EquipmentTypeID == equipmentTypeID {
			return line.Quantity
		}
	}
	return 0
}
