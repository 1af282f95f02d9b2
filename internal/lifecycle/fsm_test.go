package lifecycle

import (
	"testing"
	"time"

	"roomres/internal/models"
)

func TestFSMTransitions(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		name        string
		from        models.Status
		to          models.Status
		shouldAllow bool
	}{
		{"pending to approved", models.StatusPending, models.StatusApproved, true},
		{"pending to rejected", models.StatusPending, models.StatusRejected, true},
		{"pending to cancelled", models.StatusPending, models.StatusCancelled, true},
		{"approved to in progress", models.StatusApproved, models.StatusInProgress, true},
		{"approved to cancelled", models.StatusApproved, models.StatusCancelled, true},
		{"in progress to completed", models.StatusInProgress, models.StatusCompleted, true},
		// No skipping ahead
		{"pending to in progress", models.StatusPending, models.StatusInProgress, false},
		{"pending to completed", models.StatusPending, models.StatusCompleted, false},
		{"approved to completed", models.StatusApproved, models.StatusCompleted, false},
		// No moving backward
		{"approved to pending", models.StatusApproved, models.StatusPending, false},
		{"in progress to approved", models.StatusInProgress, models.StatusApproved, false},
		{"completed to in progress", models.StatusCompleted, models.StatusInProgress, false},
		// Terminal statuses have no outgoing edges
		{"rejected to pending", models.StatusRejected, models.StatusPending, false},
		{"rejected to approved", models.StatusRejected, models.StatusApproved, false},
		{"cancelled to approved", models.StatusCancelled, models.StatusApproved, false},
		{"completed to pending", models.StatusCompleted, models.StatusPending, false},
		// In-progress cannot be cancelled
		{"in progress to cancelled", models.StatusInProgress, models.StatusCancelled, false},
		// Unknown status
		{"unknown status", models.Status("confirmed"), models.StatusApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := fsm.CanTransition(tt.from, tt.to)
			if allowed != tt.shouldAllow {
				t.Errorf("transition %s -> %s: expected allowed=%v, got %v",
					tt.from, tt.to, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestFSMCheck(t *testing.T) {
	fsm := NewFSM()

	if err := fsm.Check(models.StatusPending, models.StatusApproved); err != nil {
		t.Errorf("expected legal transition, got %v", err)
	}

	err := fsm.Check(models.StatusRejected, models.StatusApproved)
	te, ok := err.(*TransitionError)
	if !ok {
		t.Fatalf("expected *TransitionError, got %T", err)
	}
	if te.From != models.StatusRejected || te.To != models.StatusApproved {
		t.Errorf("unexpected error fields: %+v", te)
	}
}

func TestTimeAdvance(t *testing.T) {
	start := time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name       string
		status     models.Status
		now        time.Time
		wantStatus models.Status
		wantMove   bool
	}{
		{"approved before start", models.StatusApproved, start.Add(-time.Minute), models.StatusApproved, false},
		{"approved at start", models.StatusApproved, start, models.StatusInProgress, true},
		{"approved mid window", models.StatusApproved, start.Add(30 * time.Minute), models.StatusInProgress, true},
		{"approved past end stays approved", models.StatusApproved, end.Add(time.Minute), models.StatusApproved, false},
		{"in progress before end", models.StatusInProgress, end.Add(-time.Minute), models.StatusInProgress, false},
		{"in progress at end", models.StatusInProgress, end, models.StatusCompleted, true},
		{"in progress past end", models.StatusInProgress, end.Add(time.Hour), models.StatusCompleted, true},
		{"pending never advances", models.StatusPending, end.Add(time.Hour), models.StatusPending, false},
		{"rejected never advances", models.StatusRejected, end.Add(time.Hour), models.StatusRejected, false},
		{"cancelled never advances", models.StatusCancelled, end.Add(time.Hour), models.StatusCancelled, false},
		{"completed never advances", models.StatusCompleted, end.Add(time.Hour), models.StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &models.Reservation{Status: tt.status, StartTime: start, EndTime: end}
			got, moved := TimeAdvance(res, tt.now)
			if got != tt.wantStatus || moved != tt.wantMove {
				t.Errorf("TimeAdvance(%s, %v) = (%s, %v), want (%s, %v)",
					tt.status, tt.now, got, moved, tt.wantStatus, tt.wantMove)
			}
		})
	}
}

func TestTimeAdvanceIdempotent(t *testing.T) {
	start := time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Minute)
	res := &models.Reservation{
		Status:    models.StatusApproved,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}

	first, moved := TimeAdvance(res, now)
	if !moved || first != models.StatusInProgress {
		t.Fatalf("first advance = (%s, %v)", first, moved)
	}
	res.Status = first

	second, moved := TimeAdvance(res, now)
	if moved {
		t.Errorf("second advance with same now must be a no-op, got %s", second)
	}
	if second != models.StatusInProgress {
		t.Errorf("status changed on repeat advance: %s", second)
	}
}
