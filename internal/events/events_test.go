package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var approved []string
	bus.Subscribe(TypeReservationApproved, func(e Event) error {
		approved = append(approved, e.ReservationID)
		return nil
	})
	bus.Subscribe(TypeReservationApproved, func(e Event) error {
		return errors.New("handler failure must not stop others")
	})

	var rejected int
	bus.Subscribe(TypeReservationRejected, func(e Event) error {
		rejected++
		return nil
	})

	bus.Publish(Event{Type: TypeReservationApproved, ReservationID: "r-1"})
	bus.Publish(Event{Type: TypeReservationApproved, ReservationID: "r-2"})
	bus.Publish(Event{Type: TypeReservationCancelled, ReservationID: "r-3"})

	assert.Equal(t, []string{"r-1", "r-2"}, approved)
	assert.Zero(t, rejected)
}

func TestBusStampsCreatedAt(t *testing.T) {
	bus := NewBus()

	var got Event
	bus.Subscribe(TypeReservationCreated, func(e Event) error {
		got = e
		return nil
	})

	bus.Publish(Event{Type: TypeReservationCreated, ReservationID: "r-1"})
	assert.False(t, got.CreatedAt.IsZero())
}
