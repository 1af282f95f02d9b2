// Package service orchestrates reservation operations: validation,
// per-room locking, conflict checking and lifecycle transitions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roomres/internal/conflict"
	"roomres/internal/database"
	"roomres/internal/events"
	"roomres/internal/lifecycle"
	"roomres/internal/locker"
	"roomres/internal/metrics"
	"roomres/internal/models"
)

var (
	ErrPastStart    = errors.New("start time is in the past")
	ErrDateTooFar   = errors.New("start time is too far in the future")
	ErrReasonLength = errors.New("rejection reason must be 10-1000 characters")
)

const (
	minReasonLength = 10
	maxReasonLength = 1000
)

// Store is the reservation persistence contract the service needs.
type Store interface {
	CreateReservation(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, id string, from models.Status, version int64, to models.Status, rejectionReason string) error
}

// Checker decides admissibility of a candidate interval.
type Checker interface {
	CheckAvailability(ctx context.Context, roomID int64, start, end time.Time, lines []models.EquipmentLine, excludeID string) error
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Auditor records lifecycle transitions. Audit failures never block a
// transition; they are logged and skipped.
type Auditor interface {
	RecordTransition(ctx context.Context, reservationID string, actorID int64, from, to models.Status, reason string) error
}

// Rules holds booking window limits applied at creation.
type Rules struct {
	// MaxAdvance bounds how far ahead a reservation may start.
	// Zero means unlimited.
	MaxAdvance time.Duration
}

// ReservationService exposes the reservation operations.
type ReservationService struct {
	store   Store
	checker Checker
	locks   locker.Locker
	clock   Clock
	fsm     *lifecycle.FSM
	bus     *events.Bus
	auditor Auditor
	rules   Rules
	logger  *zerolog.Logger
}

// NewReservationService creates the service. bus and auditor may be nil.
func NewReservationService(
	store Store,
	checker Checker,
	locks locker.Locker,
	clk Clock,
	bus *events.Bus,
	auditor Auditor,
	rules Rules,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		store:   store,
		checker: checker,
		locks:   locks,
		clock:   clk,
		fsm:     lifecycle.NewFSM(),
		bus:     bus,
		auditor: auditor,
		rules:   rules,
		logger:  logger,
	}
}

// Create validates the request, takes the room's lock, checks
// availability under it and persists a new Pending reservation. A
// Pending reservation does not yet reserve anything: availability is
// re-validated at approval, which is where exclusivity is granted.
func (s *ReservationService) Create(ctx context.Context, userID, roomID int64, start, end time.Time, lines []models.EquipmentLine) (*models.Reservation, error) {
	if !end.After(start) {
		return nil, conflict.ErrInvalidInterval
	}
	now := s.clock.Now()
	if start.Before(now) {
		return nil, ErrPastStart
	}
	if s.rules.MaxAdvance > 0 && start.After(now.Add(s.rules.MaxAdvance)) {
		return nil, ErrDateTooFar
	}
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, conflict.ErrInvalidQuantity
		}
		if seen[line.EquipmentTypeID] {
			return nil, conflict.ErrDuplicateEquipment
		}
		seen[line.EquipmentTypeID] = true
	}

	release, err := s.locks.Acquire(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("acquire room lock: %w", err)
	}
	defer release()

	if err := s.checker.CheckAvailability(ctx, roomID, start, end, lines, ""); err != nil {
		s.countConflict(err)
		return nil, err
	}

	res := &models.Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Status:    models.StatusPending,
		Equipment: lines,
	}
	if err := s.store.CreateReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationCreated()
	s.logger.Info().
		Str("reservation_id", res.ID).
		Int64("room_id", roomID).
		Time("start", start).
		Time("end", end).
		Msg("reservation created")
	s.publish(events.TypeReservationCreated, res)
	return res, nil
}

// Approve moves a Pending reservation to Approved. Availability is
// re-checked under the room lock, excluding the reservation itself: the
// check at creation time has no exclusivity and may be long stale. On
// conflict the reservation stays Pending so the approver can retry or
// the requester can be notified.
func (s *ReservationService) Approve(ctx context.Context, id string, actorID int64) (*models.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fsm.Check(res.Status, models.StatusApproved); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, res.RoomID)
	if err != nil {
		return nil, fmt.Errorf("acquire room lock: %w", err)
	}
	defer release()

	if err := s.checker.CheckAvailability(ctx, res.RoomID, res.StartTime, res.EndTime, res.Equipment, res.ID); err != nil {
		s.countConflict(err)
		return nil, err
	}

	if err := s.transition(ctx, res, actorID, models.StatusApproved, ""); err != nil {
		return nil, err
	}
	s.publish(events.TypeReservationApproved, res)
	return res, nil
}

// Reject moves a Pending reservation to Rejected with a mandatory
// reason of 10-1000 characters.
func (s *ReservationService) Reject(ctx context.Context, id string, actorID int64, reason string) (*models.Reservation, error) {
	if len(reason) < minReasonLength || len(reason) > maxReasonLength {
		return nil, ErrReasonLength
	}

	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fsm.Check(res.Status, models.StatusRejected); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, res, actorID, models.StatusRejected, reason); err != nil {
		return nil, err
	}
	res.RejectionReason = reason
	s.publish(events.TypeReservationRejected, res)
	return res, nil
}

// Cancel moves a Pending or Approved reservation to Cancelled. An
// Approved reservation can only be cancelled before its start time; a
// slot already in progress or past stays occupied in the history.
func (s *ReservationService) Cancel(ctx context.Context, id string, actorID int64) (*models.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fsm.Check(res.Status, models.StatusCancelled); err != nil {
		return nil, err
	}
	if res.Status == models.StatusApproved && !s.clock.Now().Before(res.StartTime) {
		return nil, &lifecycle.TransitionError{From: res.Status, To: models.StatusCancelled}
	}

	if err := s.transition(ctx, res, actorID, models.StatusCancelled, ""); err != nil {
		return nil, err
	}
	s.publish(events.TypeReservationCancelled, res)
	return res, nil
}

// Advance applies the time-triggered transition due at now, if any.
// Idempotent: a reservation that already advanced is a no-op. Safe to
// race with other Advance calls and with actors; the store's
// compare-and-set rejects stale writes.
func (s *ReservationService) Advance(ctx context.Context, id string, now time.Time) (models.Status, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return "", err
	}

	next, due := lifecycle.TimeAdvance(res, now)
	if !due {
		return res.Status, nil
	}

	if err := s.transition(ctx, res, 0, next, ""); err != nil {
		// A concurrent sweep or actor won the CAS; the row already
		// moved, so report where it landed instead of failing.
		if errors.Is(err, database.ErrConcurrentModification) {
			current, getErr := s.store.GetReservation(ctx, id)
			if getErr != nil {
				return "", getErr
			}
			return current.Status, nil
		}
		return "", err
	}
	switch next {
	case models.StatusInProgress:
		s.publish(events.TypeReservationStarted, res)
	case models.StatusCompleted:
		s.publish(events.TypeReservationCompleted, res)
	}
	return next, nil
}

// Get returns a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// transition performs the CAS status update and records the audit trail.
// res is updated in place on success.
func (s *ReservationService) transition(ctx context.Context, res *models.Reservation, actorID int64, to models.Status, reason string) error {
	from := res.Status
	if err := s.store.UpdateStatus(ctx, res.ID, from, res.Version, to, reason); err != nil {
		return err
	}
	res.Status = to
	res.Version++

	metrics.IncTransition(string(to))
	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("actor_id", actorID).
		Msg("reservation transition")

	if s.auditor != nil {
		if err := s.auditor.RecordTransition(ctx, res.ID, actorID, from, to, reason); err != nil {
			s.logger.Error().Err(err).
				Str("reservation_id", res.ID).
				Msg("failed to record audit transition")
		}
	}
	return nil
}

func (s *ReservationService) publish(eventType string, res *models.Reservation) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{
		Type:          eventType,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		UserID:        res.UserID,
	})
}

func (s *ReservationService) countConflict(err error) {
	if ce, ok := conflict.AsConflict(err); ok {
		metrics.IncConflict(string(ce.Code))
	}
}
