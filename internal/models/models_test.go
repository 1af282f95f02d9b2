package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservation_Overlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	res := &Reservation{
		StartTime: base,                    // 10:00
		EndTime:   base.Add(1 * time.Hour), // 11:00
	}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical interval", base, base.Add(1 * time.Hour), true},
		{"contained", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"containing", base.Add(-1 * time.Hour), base.Add(2 * time.Hour), true},
		{"overlap at start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"overlap at end", base.Add(59 * time.Minute), base.Add(61 * time.Minute), true},
		{"back-to-back after", base.Add(1 * time.Hour), base.Add(2 * time.Hour), false},
		{"back-to-back before", base.Add(-1 * time.Hour), base, false},
		{"well before", base.Add(-3 * time.Hour), base.Add(-2 * time.Hour), false},
		{"well after", base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, res.Overlaps(tt.start, tt.end))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusApproved.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusApproved, StatusRejected,
		StatusInProgress, StatusCompleted, StatusCancelled,
	} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, Status("confirmed").Valid())
	assert.False(t, Status("").Valid())
}

func TestReservation_IsBlocking(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusApproved, true},
		{StatusInProgress, true},
		{StatusRejected, false},
		{StatusCompleted, false},
		{StatusCancelled, false},
	}
	for _, tt := range tests {
		res := &Reservation{Status: tt.status}
		assert.Equal(t, tt.want, res.IsBlocking(), "status %s", tt.status)
	}
}

func TestReservation_EquipmentQuantity(t *testing.T) {
	res := &Reservation{
		Equipment: []EquipmentLine{
			{EquipmentTypeID: 1, Quantity: 3},
			{EquipmentTypeID: 2, Quantity: 1},
		},
	}
	assert.Equal(t, 3, res.EquipmentQuantity(1))
	assert.Equal(t, 1, res.EquipmentQuantity(2))
	assert.Equal(t, 0, res.EquipmentQuantity(99))
}
