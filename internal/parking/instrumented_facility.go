package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedFacility struct {
	*Facility
	telemetry *TelemetryProvider

	// Metrics
	entryOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	relocations       metric.Int64Histogram
	revenue           metric.Float64Counter
	occupancyGauge    metric.Int64UpDownCounter
	waitingGauge      metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram

	lastOccupied int
	lastWaiting  int
}

func NewInstrumentedFacility(facility *Facility, telemetry *TelemetryProvider) (*InstrumentedFacility, error) {
	meter := telemetry.Meter()

	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of entry requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of exit requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	relocations, err := meter.Int64Histogram("parking_relocations",
		metric.WithDescription("Cars moved aside to let a car leave"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Float64Counter("parking_revenue_total",
		metric.WithDescription("Fees collected on exit"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_occupancy",
		metric.WithDescription("Current number of parked cars"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	waitingGauge, err := meter.Int64UpDownCounter("parking_waiting",
		metric.WithDescription("Current number of cars in the waiting area"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of facility operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	f := &InstrumentedFacility{
		Facility:          facility,
		telemetry:         telemetry,
		entryOperations:   entryOperations,
		exitOperations:    exitOperations,
		relocations:       relocations,
		revenue:           revenue,
		occupancyGauge:    occupancyGauge,
		waitingGauge:      waitingGauge,
		operationDuration: operationDuration,
	}
	f.syncGauges(context.Background())

	return f, nil
}

// syncGauges moves the up-down counters to the facility's current occupancy.
func (f *InstrumentedFacility) syncGauges(ctx context.Context) {
	occupied := f.stack.Len()
	waiting := f.queue.Len()

	if d := occupied - f.lastOccupied; d != 0 {
		f.occupancyGauge.Add(ctx, int64(d))
	}
	if d := waiting - f.lastWaiting; d != 0 {
		f.waitingGauge.Add(ctx, int64(d))
	}

	f.lastOccupied = occupied
	f.lastWaiting = waiting
}

func (f *InstrumentedFacility) Enter(ctx context.Context, plate string) (Entry, error) {
	tracer := f.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.enter",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("checking_existing_plates")

	entry, err := f.Facility.Enter(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "enter"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", statusLabel(err)))
	} else {
		labels = append(labels,
			attribute.String("status", "success"),
			attribute.String("placement", entry.Placement.String()),
		)
		span.SetAttributes(
			attribute.String("placement", entry.Placement.String()),
			attribute.Int("position", entry.Position),
		)
		span.AddEvent("car_"+entry.Placement.String(), trace.WithAttributes(
			attribute.Int("position", entry.Position),
		))
		f.syncGauges(ctx)
	}

	f.entryOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	f.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return entry, err
}

func (f *InstrumentedFacility) Exit(ctx context.Context, plate string) (Receipt, error) {
	tracer := f.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.exit",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("locating_car")

	receipt, err := f.Facility.Exit(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "exit"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", statusLabel(err)))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(
			attribute.Int("relocated", receipt.Relocated),
			attribute.Int64("billed_hours", receipt.BilledHours),
			attribute.Float64("fee", receipt.Fee),
		)
		span.AddEvent("car_departed")
		if receipt.Promoted != nil {
			span.AddEvent("car_promoted", trace.WithAttributes(
				attribute.String("vehicle.plate", receipt.Promoted.Plate),
			))
		}

		f.relocations.Record(ctx, int64(receipt.Relocated))
		f.revenue.Add(ctx, receipt.Fee)
		f.syncGauges(ctx)
	}

	f.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	f.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (f *InstrumentedFacility) Status(ctx context.Context) Status {
	tracer := f.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.status")
	defer span.End()

	start := time.Now()

	status := f.Facility.Status()

	span.SetAttributes(
		attribute.Int("occupied", status.Occupied),
		attribute.Int("waiting", status.WaitingCount),
		attribute.Int("capacity", status.Capacity),
	)

	f.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", "status"),
		attribute.String("status", "success"),
	))

	return status
}

func (f *InstrumentedFacility) Restore(ctx context.Context, state State) error {
	tracer := f.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.restore",
		trace.WithAttributes(
			attribute.Int("parked", len(state.Parked)),
			attribute.Int("waiting", len(state.Waiting)),
		))
	defer span.End()

	if err := f.Facility.Restore(state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	f.syncGauges(ctx)
	return nil
}

func (f *InstrumentedFacility) Clear(ctx context.Context) {
	f.Facility.Clear()
	f.syncGauges(ctx)
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrExists):
		return "exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrEmpty):
		return "empty"
	case errors.Is(err, ErrInvalidPlate):
		return "invalid_plate"
	default:
		return "failed"
	}
}
