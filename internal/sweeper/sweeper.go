// Package sweeper periodically advances time-eligible reservations:
// Approved past their start become InProgress, InProgress past their
// end become Completed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomres/internal/database"
	"roomres/internal/metrics"
	"roomres/internal/models"
)

// Store lists reservations whose interval boundary has been crossed.
type Store interface {
	FindByStatusAndBoundary(ctx context.Context, statuses []models.Status, boundary database.Boundary, cutoff time.Time) ([]models.Reservation, error)
}

// Advancer applies a time-triggered transition to one reservation.
type Advancer interface {
	Advance(ctx context.Context, id string, now time.Time) (models.Status, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Config holds sweeper configuration.
type Config struct {
	// Interval is how often to sweep. Default: 1 minute.
	Interval time.Duration

	// SweepTimeout bounds one whole sweep pass. Default: 5 minutes.
	SweepTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     1 * time.Minute,
		SweepTimeout: 5 * time.Minute,
	}
}

// Stats counts what one sweep did.
type Stats struct {
	Started   int // Approved -> InProgress
	Completed int // InProgress -> Completed
	Failed    int // per-reservation failures, logged and skipped
}

// Sweeper runs the periodic status sweep.
type Sweeper struct {
	config   Config
	store    Store
	advancer Advancer
	clock    Clock
	logger   *zerolog.Logger
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a sweeper.
func New(config Config, store Store, advancer Advancer, clk Clock, logger *zerolog.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Minute
	}
	if config.SweepTimeout <= 0 {
		config.SweepTimeout = 5 * time.Minute
	}
	return &Sweeper{
		config:   config,
		store:    store,
		advancer: advancer,
		clock:    clk,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop. It returns immediately; the loop runs
// until Stop is called or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Msg("status sweeper started")

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop stops the sweep loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("status sweeper stopped")
}

// IsRunning returns whether the sweep loop is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately on start
	s.runOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	started := time.Now()
	stats, err := s.Sweep(sweepCtx, s.clock.Now())
	metrics.ObserveSweepDuration(time.Since(started).Seconds())
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		return
	}
	if stats.Started > 0 || stats.Completed > 0 || stats.Failed > 0 {
		s.logger.Info().
			Int("started", stats.Started).
			Int("completed", stats.Completed).
			Int("failed", stats.Failed).
			Dur("duration", time.Since(started)).
			Msg("sweep finished")
	}
}

// Sweep advances every reservation whose boundary has been crossed at
// now. Each advancement is independent: a failure on one reservation is
// counted, logged and skipped, never aborting the pass. Safe to run
// concurrently with itself and with actor transitions; Advance is
// idempotent and the store's compare-and-set rejects the loser of any
// double-run.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	// Approved reservations whose window opened.
	due, err := s.store.FindByStatusAndBoundary(ctx,
		[]models.Status{models.StatusApproved}, database.BoundaryStart, now)
	if err != nil {
		return stats, err
	}
	for i := range due {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		moved, err := s.advanceOne(ctx, &due[i], now, models.StatusInProgress)
		switch {
		case err != nil:
			stats.Failed++
		case moved:
			stats.Started++
			metrics.IncSweepAdvanced("start")
		}
	}

	// In-progress reservations whose window closed.
	done, err := s.store.FindByStatusAndBoundary(ctx,
		[]models.Status{models.StatusInProgress}, database.BoundaryEnd, now)
	if err != nil {
		return stats, err
	}
	for i := range done {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		moved, err := s.advanceOne(ctx, &done[i], now, models.StatusCompleted)
		switch {
		case err != nil:
			stats.Failed++
		case moved:
			stats.Completed++
			metrics.IncSweepAdvanced("complete")
		}
	}

	return stats, nil
}

func (s *Sweeper) advanceOne(ctx context.Context, res *models.Reservation, now time.Time, want models.Status) (bool, error) {
	got, err := s.advancer.Advance(ctx, res.ID, now)
	if err != nil {
		metrics.IncSweepFailure()
		s.logger.Error().Err(err).
			Str("reservation_id", res.ID).
			Time("now", now).
			Msg("failed to advance reservation")
		return false, err
	}
	if got != want {
		// Either someone else advanced it first or it is not eligible,
		// such as an approved reservation whose window already lapsed.
		s.logger.Debug().
			Str("reservation_id", res.ID).
			Str("status", string(got)).
			Msg("reservation not advanced")
		return false, nil
	}
	return true, nil
}
