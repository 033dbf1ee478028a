package parking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInstrumentedFacilityIntegration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	telemetry := NewInMemoryTelemetryProvider(reader)
	defer func() {
		assert.NoError(t, telemetry.Shutdown(context.Background()))
	}()

	clock := &testClock{now: time.Unix(1700000000, 0)}
	f, err := NewInstrumentedFacility(NewFacility(2, WithClock(clock.Now)), telemetry)
	require.NoError(t, err)

	ctx := context.Background()

	for _, p := range []string{"AAA0001", "AAA0002", "AAA0003"} {
		_, err := f.Enter(ctx, p)
		require.NoError(t, err)
	}
	_, err = f.Enter(ctx, "AAA0001")
	assert.ErrorIs(t, err, ErrExists)

	assert.Equal(t, int64(4), collectSum(t, reader, "parking_entries_total"))
	assert.Equal(t, int64(2), collectSum(t, reader, "parking_occupancy"))
	assert.Equal(t, int64(1), collectSum(t, reader, "parking_waiting"))

	clock.Advance(time.Minute)
	receipt, err := f.Exit(ctx, "AAA0001")
	require.NoError(t, err)
	require.NotNil(t, receipt.Promoted)

	assert.Equal(t, int64(1), collectSum(t, reader, "parking_exits_total"))
	assert.Equal(t, int64(2), collectSum(t, reader, "parking_occupancy"))
	assert.Equal(t, int64(0), collectSum(t, reader, "parking_waiting"))

	status := f.Status(ctx)
	assert.Equal(t, []string{"AAA0002", "AAA0003"}, status.ParkedPlates)
}

func TestInstrumentedFacilityRestoreSyncsGauges(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	telemetry := NewInMemoryTelemetryProvider(reader)
	defer telemetry.Shutdown(context.Background())

	f, err := NewInstrumentedFacility(NewFacility(3), telemetry)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	state := State{
		Stats:   NewStats(now),
		Parked:  []Car{NewCar("AAA0001", now), NewCar("AAA0002", now)},
		Waiting: []Car{},
	}
	require.NoError(t, f.Restore(context.Background(), state))
	assert.Equal(t, int64(2), collectSum(t, reader, "parking_occupancy"))

	err = f.Restore(context.Background(), State{Parked: make([]Car, 4)})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, int64(2), collectSum(t, reader, "parking_occupancy"))

	f.Clear(context.Background())
	assert.Equal(t, int64(0), collectSum(t, reader, "parking_occupancy"))
	assert.Equal(t, 0, f.Status(context.Background()).Occupied)
}

func TestRelocationHistogramUsesFacilityBuckets(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	telemetry := NewInMemoryTelemetryProvider(reader)
	defer telemetry.Shutdown(context.Background())

	f, err := NewInstrumentedFacility(NewFacility(3), telemetry)
	require.NoError(t, err)

	ctx := context.Background()
	for _, p := range []string{"AAA0001", "AAA0002", "AAA0003"} {
		_, err := f.Enter(ctx, p)
		require.NoError(t, err)
	}
	receipt, err := f.Exit(ctx, "AAA0001")
	require.NoError(t, err)
	require.Equal(t, 2, receipt.Relocated)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "parking_relocations" {
				continue
			}
			hist, ok := m.Data.(metricdata.Histogram[int64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)

			dp := hist.DataPoints[0]
			assert.Equal(t, relocationBuckets, dp.Bounds)
			assert.Equal(t, uint64(1), dp.Count)
			assert.Equal(t, int64(2), dp.Sum)
			found = true
		}
	}
	assert.True(t, found, "parking_relocations not collected")
}
