package sweeper

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomres/internal/clock"
	"roomres/internal/database"
	"roomres/internal/lifecycle"
	"roomres/internal/models"
)

// fakeStore holds reservations in memory and applies time-advance
// transitions the way the real service does.
type fakeStore struct {
	mu           sync.Mutex
	reservations map[string]*models.Reservation
	failIDs      map[string]bool // Advance fails for these ids
	advanced     int
}

func newFakeStore(reservations ...*models.Reservation) *fakeStore {
	m := make(map[string]*models.Reservation, len(reservations))
	for _, r := range reservations {
		m[r.ID] = r
	}
	return &fakeStore{reservations: m, failIDs: make(map[string]bool)}
}

func (f *fakeStore) FindByStatusAndBoundary(_ context.Context, statuses []models.Status, boundary database.Boundary, cutoff time.Time) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Reservation
	for _, r := range f.reservations {
		match := false
		for _, s := range statuses {
			if r.Status == s {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		var edge time.Time
		switch boundary {
		case database.BoundaryStart:
			edge = r.StartTime
		case database.BoundaryEnd:
			edge = r.EndTime
		}
		if !edge.After(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeStore) Advance(_ context.Context, id string, now time.Time) (models.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[id] {
		return "", assert.AnError
	}
	res, ok := f.reservations[id]
	if !ok {
		return "", assert.AnError
	}
	next, due := lifecycle.TimeAdvance(res, now)
	if due {
		res.Status = next
		res.Version++
		f.advanced++
	}
	return next, nil
}

func (f *fakeStore) status(id string) models.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[id].Status
}

func newTestSweeper(store *fakeStore, now time.Time) *Sweeper {
	logger := zerolog.New(io.Discard)
	return New(DefaultConfig(), store, store, clock.NewFake(now), &logger)
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

	store := newFakeStore(
		&models.Reservation{
			ID: "due-start", Status: models.StatusApproved,
			StartTime: now.Add(-time.Minute), EndTime: now.Add(59 * time.Minute),
		},
		&models.Reservation{
			ID: "future", Status: models.StatusApproved,
			StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour),
		},
		&models.Reservation{
			ID: "due-end", Status: models.StatusInProgress,
			StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Minute),
		},
		&models.Reservation{
			ID: "pending-past", Status: models.StatusPending,
			StartTime: now.Add(-time.Minute), EndTime: now.Add(59 * time.Minute),
		},
	)
	s := newTestSweeper(store, now)

	stats, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Started)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.Failed)

	assert.Equal(t, models.StatusInProgress, store.status("due-start"))
	assert.Equal(t, models.StatusCompleted, store.status("due-end"))
	assert.Equal(t, models.StatusApproved, store.status("future"))
	assert.Equal(t, models.StatusPending, store.status("pending-past"),
		"pending reservations are never advanced")
}

func TestSweepIdempotent(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(
		&models.Reservation{
			ID: "due-start", Status: models.StatusApproved,
			StartTime: now.Add(-time.Minute), EndTime: now.Add(59 * time.Minute),
		},
	)
	s := newTestSweeper(store, now)
	ctx := context.Background()

	first, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Started)

	second, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Started)
	assert.Equal(t, models.StatusInProgress, store.status("due-start"))
	assert.Equal(t, 1, store.advanced, "repeat sweep must not re-advance")
}

func TestSweepContinuesAfterFailure(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(
		&models.Reservation{
			ID: "broken", Status: models.StatusApproved,
			StartTime: now.Add(-2 * time.Minute), EndTime: now.Add(time.Hour),
		},
		&models.Reservation{
			ID: "healthy", Status: models.StatusApproved,
			StartTime: now.Add(-time.Minute), EndTime: now.Add(time.Hour),
		},
	)
	store.failIDs["broken"] = true
	s := newTestSweeper(store, now)

	stats, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Started)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, models.StatusInProgress, store.status("healthy"),
		"failure on one record must not block the others")
}

func TestSweepLapsedApprovedStaysApproved(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	// Approved but the whole window already elapsed before any sweep
	// ran: it never started, so it neither starts nor completes.
	store := newFakeStore(
		&models.Reservation{
			ID: "lapsed", Status: models.StatusApproved,
			StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
		},
	)
	s := newTestSweeper(store, now)

	stats, err := s.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Started)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, models.StatusApproved, store.status("lapsed"))
}

func TestStartStop(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	logger := zerolog.New(io.Discard)
	s := New(Config{Interval: 10 * time.Millisecond}, store, store, clock.NewFake(now), &logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	assert.True(t, s.IsRunning())
	s.Start(ctx) // second start is a no-op

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop() // second stop is a no-op
}
