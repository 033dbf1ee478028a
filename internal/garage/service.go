// Package garage runs the parking facility for the outer adapters. It
// serializes requests, applies the persistence policy and fans out receipts
// and events after a successful operation.
package garage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"lifo-parking/internal/config"
	"lifo-parking/internal/events"
	"lifo-parking/internal/logging"
	"lifo-parking/internal/parking"
	"lifo-parking/internal/store"
)

type Option func(*Service)

func WithJournal(j store.Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithPersistPolicy(p config.PersistPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

type Service struct {
	mu sync.Mutex

	facility  *parking.InstrumentedFacility
	store     store.Store
	journal   store.Journal
	publisher events.Publisher
	policy    config.PersistPolicy
	log       zerolog.Logger
	tracer    trace.Tracer

	persistFailures metric.Int64Counter
}

func NewService(facility *parking.InstrumentedFacility, st store.Store, telemetry *parking.TelemetryProvider, opts ...Option) (*Service, error) {
	persistFailures, err := telemetry.Meter().Int64Counter("parking_persist_failures_total",
		metric.WithDescription("State saves that failed after a committed operation"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	s := &Service{
		facility:        facility,
		store:           st,
		journal:         store.NewMemoryJournal(),
		publisher:       events.NopPublisher{},
		policy:          config.WriteThrough,
		log:             zerolog.Nop(),
		tracer:          telemetry.Tracer(),
		persistFailures: persistFailures,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Service) Capacity() int {
	return s.facility.Capacity()
}

func (s *Service) Enter(ctx context.Context, plate string) (parking.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.WithContext(ctx, s.log)

	entry, err := s.facility.Enter(ctx, plate)
	if err != nil {
		log.Debug().Err(err).Str("plate", plate).Msg("entry rejected")
		return entry, err
	}

	log.Info().
		Str("plate", plate).
		Str("placement", entry.Placement.String()).
		Int("position", entry.Position).
		Msg("car entered")

	s.writeThrough(ctx, "enter")
	s.publish(ctx, events.FromEntry(entry))

	return entry, nil
}

func (s *Service) Exit(ctx context.Context, plate string) (parking.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.WithContext(ctx, s.log)

	receipt, err := s.facility.Exit(ctx, plate)
	if err != nil {
		if errors.Is(err, parking.ErrRelocation) {
			log.Error().Err(err).Str("plate", plate).Msg("exit aborted")
		} else {
			log.Debug().Err(err).Str("plate", plate).Msg("exit rejected")
		}
		return receipt, err
	}

	logEvent := log.Info().
		Str("plate", plate).
		Int("relocated", receipt.Relocated).
		Int64("billed_hours", receipt.BilledHours).
		Float64("fee", receipt.Fee)
	if receipt.Promoted != nil {
		logEvent = logEvent.Str("promoted", receipt.Promoted.Plate)
	}
	logEvent.Msg("car departed")

	s.writeThrough(ctx, "exit")

	if _, err := s.journal.Record(ctx, receipt); err != nil {
		log.Warn().Err(err).Str("plate", plate).Msg("failed to journal receipt")
	}
	s.publish(ctx, events.FromReceipt(receipt)...)

	return receipt, nil
}

func (s *Service) Status(ctx context.Context) parking.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.facility.Status(ctx)
}

func (s *Service) Stats(_ context.Context) parking.StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.facility.Stats()
}

func (s *Service) Receipts(ctx context.Context, limit int) ([]store.JournalEntry, error) {
	return s.journal.Recent(ctx, limit)
}

func (s *Service) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(ctx)
}

// Load replaces the in-memory state with the stored snapshot. It reports
// false when there is nothing usable to load; the current state is then kept.
func (s *Service) Load(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "garage.load")
	defer span.End()

	state, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNoState) {
		span.AddEvent("no_saved_state")
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("load state: %w", err)
	}

	if err := s.facility.Restore(ctx, state); err != nil {
		return false, fmt.Errorf("restore state: %w", err)
	}

	s.log.Info().
		Int("parked", len(state.Parked)).
		Int("waiting", len(state.Waiting)).
		Int64("served", state.Stats.TotalServed).
		Msg("state loaded")

	return true, nil
}

// Close saves the final state, empties the facility and releases the
// publisher, the journal and then the store.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.save(ctx); err != nil {
		errs = append(errs, err)
	}
	s.facility.Clear(ctx)

	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if closer, ok := s.journal.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Service) save(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "garage.save")
	defer span.End()

	start := time.Now()
	if err := s.store.Save(ctx, s.facility.Snapshot()); err != nil {
		span.RecordError(err)
		return fmt.Errorf("save state: %w", err)
	}

	s.log.Debug().Dur("took", time.Since(start)).Msg("state saved")
	return nil
}

// writeThrough saves after a committed operation. A failed save is reported
// but never undoes the operation.
func (s *Service) writeThrough(ctx context.Context, operation string) {
	if s.policy != config.WriteThrough {
		return
	}

	if err := s.save(ctx); err != nil {
		s.persistFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
		s.log.Error().Err(err).Str("operation", operation).Msg("failed to persist state")
	}
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	for _, e := range evts {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.log.Warn().Err(err).Str("event", string(e.Type)).Str("plate", e.Plate).Msg("failed to publish event")
		}
	}
}
