package conflict

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes a detected booking conflict.
type Code string

const (
	// CodeRoomUnavailable means the room is occupied by another
	// approved or in-progress reservation in the requested interval.
	CodeRoomUnavailable Code = "ROOM_UNAVAILABLE"

	// CodeEquipmentUnavailable means the requested equipment quantity
	// exceeds the stock remaining in the requested interval.
	CodeEquipmentUnavailable Code = "EQUIPMENT_UNAVAILABLE"
)

// Error describes why a requested interval cannot be booked.
// It is a business outcome, not an infrastructure fault.
type Error struct {
	Code Code

	// CollidingIDs lists the reservation ids occupying the room
	// (set for CodeRoomUnavailable).
	CollidingIDs []string

	// EquipmentTypeID and Shortfall identify the offending equipment
	// type and how many units are missing (set for CodeEquipmentUnavailable).
	EquipmentTypeID int64
	Shortfall       int
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Code {
	case CodeRoomUnavailable:
		return fmt.Sprintf("%s: room occupied by [%s]", e.Code, strings.Join(e.CollidingIDs, ", "))
	case CodeEquipmentUnavailable:
		return fmt.Sprintf("%s: equipment type %d short by %d", e.Code, e.EquipmentTypeID, e.Shortfall)
	}
	return string(e.Code)
}

// IsRoomUnavailable reports whether err is a room conflict.
// Uses errors.As to handle wrapped errors.
func IsRoomUnavailable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeRoomUnavailable
}

// IsEquipmentUnavailable reports whether err is an equipment conflict.
func IsEquipmentUnavailable(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeEquipmentUnavailable
}

// AsConflict extracts the conflict details from err, if any.
func AsConflict(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
