// Package lifecycle defines the reservation state machine: which status
// transitions are legal, and how reservations age with time.
package lifecycle

import (
	"fmt"
	"time"

	"roomres/internal/models"
)

// TransitionError reports an attempt to move a reservation along an
// edge the state machine does not allow.
type TransitionError struct {
	From models.Status
	To   models.Status
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// FSM holds the transition table for reservation statuses.
//
// Pending is the initial status. Rejected, Cancelled and Completed are
// terminal. Approved moves to InProgress only by time, InProgress to
// Completed only by time.
type FSM struct {
	transitions map[models.Status][]models.Status
}

// NewFSM creates the reservation FSM with its fixed transition table.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[models.Status][]models.Status{
			models.StatusPending:    {models.StatusApproved, models.StatusRejected, models.StatusCancelled},
			models.StatusApproved:   {models.StatusInProgress, models.StatusCancelled},
			models.StatusInProgress: {models.StatusCompleted},
			models.StatusRejected:   {},
			models.StatusCompleted:  {},
			models.StatusCancelled:  {},
		},
	}
}

// CanTransition checks if the edge from -> to is in the table.
func (f *FSM) CanTransition(from, to models.Status) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Check returns a TransitionError if the edge is not allowed.
func (f *FSM) Check(from, to models.Status) error {
	if !f.CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// TimeAdvance returns the status a reservation should move to given the
// current instant, and whether any move is due. It is idempotent: a
// reservation that already advanced reports no move.
//
// Only Approved and InProgress reservations age. A Pending reservation
// past its start time stays Pending; unapproved requests expire unused
// rather than being silently auto-rejected.
func TimeAdvance(res *models.Reservation, now time.Time) (models.Status, bool) {
	switch res.Status {
	case models.StatusApproved:
		// An approved reservation whose whole window elapsed without a
		// sweep stays Approved: it never ran, so it neither starts nor
		// completes.
		if !now.Before(res.StartTime) && now.Before(res.EndTime) {
			return models.StatusInProgress, true
		}
	case models.StatusInProgress:
		if !now.Before(res.EndTime) {
			return models.StatusCompleted, true
		}
	}
	return res.Status, false
}
