// Package audit persists every reservation lifecycle transition and
// exports a monthly workbook of the recorded history.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomres/internal/database"
	"roomres/internal/models"
)

// Store is the persistence surface the audit package needs.
type Store interface {
	InsertAuditRecord(ctx context.Context, rec *database.AuditRecord) error
	AuditRecordsBetween(ctx context.Context, from, to time.Time) ([]database.AuditRecord, error)
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Recorder appends lifecycle transitions to the audit log.
type Recorder struct {
	store  Store
	clock  Clock
	logger *zerolog.Logger
}

// NewRecorder creates a transition recorder.
func NewRecorder(store Store, clk Clock, logger *zerolog.Logger) *Recorder {
	return &Recorder{store: store, clock: clk, logger: logger}
}

// RecordTransition persists one transition.
func (r *Recorder) RecordTransition(ctx context.Context, reservationID string, actorID int64, from, to models.Status, reason string) error {
	rec := &database.AuditRecord{
		ReservationID: reservationID,
		ActorID:       actorID,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		CreatedAt:     r.clock.Now(),
	}
	if err := r.store.InsertAuditRecord(ctx, rec); err != nil {
		return err
	}
	r.logger.Debug().
		Str("reservation_id", reservationID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("transition recorded")
	return nil
}

// Config holds export and retention settings.
type Config struct {
	// ExportDir is where monthly workbooks are written.
	ExportDir string

	// RetentionDays is how long audit records are kept. Default: 365.
	RetentionDays int

	// ExportOnStart if true runs an export immediately on Start.
	ExportOnStart bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ExportDir:     ".",
		RetentionDays: 365,
	}
}

// Service runs the monthly export and retention cleanup.
type Service struct {
	config   Config
	store    Store
	exporter *Exporter
	clock    Clock
	logger   *zerolog.Logger
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewService creates the monthly audit service.
func NewService(config Config, store Store, clk Clock, logger *zerolog.Logger) *Service {
	if config.RetentionDays <= 0 {
		config.RetentionDays = 365
	}
	if config.ExportDir == "" {
		config.ExportDir = "."
	}
	return &Service{
		config:   config,
		store:    store,
		exporter: NewExporter(store, config.ExportDir),
		clock:    clk,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monthly schedule. The export runs on the first of
// each month shortly after midnight.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.RunOnce()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Int("retention_days", s.config.RetentionDays).
		Str("export_dir", s.config.ExportDir).
		Msg("audit service started")
}

// Stop halts the schedule and waits for an in-flight run.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	next := nextFirstOfMonth(s.clock.Now())
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	s.logger.Info().Time("next_run", next).Msg("next audit export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.RunOnce()
			next = nextFirstOfMonth(s.clock.Now())
			timer.Reset(time.Until(next))
			s.logger.Info().Time("next_run", next).Msg("next audit export scheduled")
		}
	}
}

// RunOnce exports the previous month and prunes expired records.
func (s *Service) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	now := s.clock.Now()
	month := now.AddDate(0, -1, 0)
	path, err := s.exporter.ExportMonth(ctx, month)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit export failed")
	} else {
		s.logger.Info().Str("path", path).Msg("audit report written")
	}

	cutoff := now.AddDate(0, 0, -s.config.RetentionDays)
	deleted, err := s.store.DeleteAuditBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit cleanup failed")
		return
	}
	if deleted > 0 {
		s.logger.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("expired audit records pruned")
	}
}

// nextFirstOfMonth returns the first day of the month after t, at 00:01.
func nextFirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 1, 0, 0, t.Location())
}
