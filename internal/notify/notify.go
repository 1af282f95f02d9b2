// Package notify fans reservation events out to a delivery sink with
// rate limiting and retries.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"roomres/internal/events"
)

// Sink delivers one notification to its destination.
type Sink interface {
	Deliver(ctx context.Context, event events.Event) error
}

// Config holds delivery settings.
type Config struct {
	// Rate is deliveries per second. Default: 20.
	Rate float64

	// Burst is the token bucket size. Default: 30.
	Burst int

	// QueueSize bounds the pending event queue; events beyond it are
	// dropped and counted. Default: 256.
	QueueSize int

	// RetryDelays are waits between delivery attempts. The number of
	// attempts is len(RetryDelays)+1.
	RetryDelays []time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Rate:      20,
		Burst:     30,
		QueueSize: 256,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
		},
	}
}

// Notifier consumes reservation events from a bus and hands them to a
// sink, one at a time, paced by a token bucket.
type Notifier struct {
	config  Config
	sink    Sink
	limiter *rate.Limiter
	logger  *zerolog.Logger
	queue   chan events.Event
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	dropped int64
}

// New creates a notifier.
func New(config Config, sink Sink, logger *zerolog.Logger) *Notifier {
	if config.Rate <= 0 {
		config.Rate = 20
	}
	if config.Burst <= 0 {
		config.Burst = 30
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	return &Notifier{
		config:  config,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
		logger:  logger,
		queue:   make(chan events.Event, config.QueueSize),
		stopCh:  make(chan struct{}),
	}
}

// SubscribeAll registers the notifier for every reservation event type
// on the bus.
func (n *Notifier) SubscribeAll(bus *events.Bus) {
	for _, eventType := range []string{
		events.TypeReservationCreated,
		events.TypeReservationApproved,
		events.TypeReservationRejected,
		events.TypeReservationCancelled,
		events.TypeReservationStarted,
		events.TypeReservationCompleted,
	} {
		bus.Subscribe(eventType, n.enqueue)
	}
}

// enqueue never blocks the publisher; a full queue drops the event.
func (n *Notifier) enqueue(event events.Event) error {
	select {
	case n.queue <- event:
		return nil
	default:
		n.mu.Lock()
		n.dropped++
		n.mu.Unlock()
		n.logger.Warn().
			Str("type", event.Type).
			Str("reservation_id", event.ReservationID).
			Msg("notification queue full, event dropped")
		return fmt.Errorf("notification queue full")
	}
}

// Dropped returns how many events were discarded on a full queue.
func (n *Notifier) Dropped() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dropped
}

// Start launches the delivery worker.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return
	}
	n.running = true
	n.mu.Unlock()

	n.wg.Add(1)
	go n.worker(ctx)

	n.logger.Info().
		Float64("rate", n.config.Rate).
		Int("burst", n.config.Burst).
		Msg("notifier started")
}

// Stop drains nothing; pending queued events are abandoned.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	close(n.stopCh)
	n.wg.Wait()
	n.logger.Info().Msg("notifier stopped")
}

func (n *Notifier) worker(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case event := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			n.deliver(ctx, event)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, event events.Event) {
	var lastErr error
	for attempt := 0; attempt <= len(n.config.RetryDelays); attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(n.config.RetryDelays[attempt-1]):
			case <-ctx.Done():
				return
			case <-n.stopCh:
				return
			}
		}
		if lastErr = n.sink.Deliver(ctx, event); lastErr == nil {
			return
		}
	}
	n.logger.Error().Err(lastErr).
		Str("type", event.Type).
		Str("reservation_id", event.ReservationID).
		Msg("notification delivery failed")
}

// LogSink writes notifications to the log. It is the default sink when
// no external delivery channel is configured.
type LogSink struct {
	logger *zerolog.Logger
}

// NewLogSink creates a sink writing to logger.
func NewLogSink(logger *zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the event.
func (s *LogSink) Deliver(_ context.Context, event events.Event) error {
	s.logger.Info().
		Str("type", event.Type).
		Str("reservation_id", event.ReservationID).
		Int64("room_id", event.RoomID).
		Int64("user_id", event.UserID).
		Msg("reservation notification")
	return nil
}
