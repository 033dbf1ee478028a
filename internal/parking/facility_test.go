package parking

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestFacility(t *testing.T, capacity int) (*Facility, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1700000000, 0)}
	return NewFacility(capacity, WithClock(clock.Now), WithHourlyRate(10.0)), clock
}

func TestFacilityEnterParksThenWaits(t *testing.T) {
	f, _ := newTestFacility(t, 2)

	entry, err := f.Enter("AAA0001")
	require.NoError(t, err)
	assert.Equal(t, Parked, entry.Placement)
	assert.Equal(t, 1, entry.Position)

	entry, err = f.Enter("AAA0002")
	require.NoError(t, err)
	assert.Equal(t, Parked, entry.Placement)
	assert.Equal(t, 2, entry.Position)

	entry, err = f.Enter("AAA0003")
	require.NoError(t, err)
	assert.Equal(t, Waiting, entry.Placement)
	assert.Equal(t, 1, entry.Position)
	assert.True(t, entry.Car.DepartedAt.IsZero())

	status := f.Status()
	assert.Equal(t, 2, status.Occupied)
	assert.Equal(t, 0, status.Free)
	assert.Equal(t, 1, status.WaitingCount)
	assert.Equal(t, []string{"AAA0001", "AAA0002"}, status.ParkedPlates)
	assert.Equal(t, []string{"AAA0003"}, status.WaitingPlates)
}

func TestFacilityExitRelocatesAndPromotes(t *testing.T) {
	f, clock := newTestFacility(t, 2)
	for _, p := range []string{"AAA0001", "AAA0002", "AAA0003"} {
		_, err := f.Enter(p)
		require.NoError(t, err)
	}

	clock.Advance(90 * time.Minute)

	receipt, err := f.Exit("AAA0001")
	require.NoError(t, err)
	assert.Equal(t, "AAA0001", receipt.Plate)
	assert.Equal(t, 1, receipt.Relocated)
	assert.Equal(t, int64(2), receipt.BilledHours)
	assert.InDelta(t, 20.0, receipt.Fee, 0.0001)
	assert.Equal(t, 90*time.Minute, receipt.Duration)

	require.NotNil(t, receipt.Promoted)
	assert.Equal(t, "AAA0003", receipt.Promoted.Plate)
	assert.Equal(t, clock.Now().Unix(), receipt.Promoted.ArrivedAt.Unix(), "promotion resets the arrival time")

	status := f.Status()
	assert.Equal(t, []string{"AAA0002", "AAA0003"}, status.ParkedPlates)
	assert.Empty(t, status.WaitingPlates)

	stats := f.Stats()
	assert.Equal(t, int64(1), stats.TotalServed)
	assert.InDelta(t, 20.0, stats.TotalRevenue, 0.0001)
}

func TestFacilityExitOnEmpty(t *testing.T) {
	f, _ := newTestFacility(t, 2)

	_, err := f.Exit("ZZZ9999")
	assert.ErrorIs(t, err, ErrEmpty)
	assert.Equal(t, int64(0), f.Stats().TotalServed)
}

func TestFacilityExitNotFoundLeavesStateUntouched(t *testing.T) {
	f, _ := newTestFacility(t, 2)
	for _, p := range []string{"AAA0001", "AAA0002", "AAA0003"} {
		_, err := f.Enter(p)
		require.NoError(t, err)
	}
	before := f.Snapshot()

	_, err := f.Exit("ZZZ9999")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.Exit("AAA0003")
	assert.ErrorIs(t, err, ErrNotFound, "waiting cars cannot exit")

	assert.Equal(t, before, f.Snapshot())
}

func TestFacilityEnterDuplicateRejected(t *testing.T) {
	f, _ := newTestFacility(t, 2)

	_, err := f.Enter("AAA0001")
	require.NoError(t, err)
	before := f.Snapshot()

	_, err = f.Enter("AAA0001")
	assert.ErrorIs(t, err, ErrExists)
	assert.Equal(t, before, f.Snapshot())

	_, err = f.Enter("AAA0002")
	require.NoError(t, err)
	_, err = f.Enter("AAA0003")
	require.NoError(t, err)

	_, err = f.Enter("AAA0003")
	assert.ErrorIs(t, err, ErrExists, "plates in the waiting area count too")
}

func TestFacilityEnterInvalidPlate(t *testing.T) {
	f, _ := newTestFacility(t, 2)

	_, err := f.Enter("")
	assert.ErrorIs(t, err, ErrInvalidPlate)

	_, err = f.Enter(fmt.Sprintf("%040d", 1))
	assert.ErrorIs(t, err, ErrInvalidPlate)
}

func TestFacilityBillsTwoHoursOneSecondAsThree(t *testing.T) {
	f, clock := newTestFacility(t, 2)
	_, err := f.Enter("AAA0001")
	require.NoError(t, err)

	clock.Advance(2*time.Hour + time.Second)

	receipt, err := f.Exit("AAA0001")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, receipt.Fee, 0.0001)
	assert.Equal(t, 0, receipt.Relocated)
	assert.Nil(t, receipt.Promoted)
}

func TestFacilityCapacityInvariant(t *testing.T) {
	const capacity = 5
	f, _ := newTestFacility(t, capacity)

	for i := 0; i < capacity*3; i++ {
		entry, err := f.Enter(fmt.Sprintf("CAR%04d", i))
		require.NoError(t, err)

		if i < capacity {
			assert.Equal(t, Parked, entry.Placement)
		} else {
			assert.Equal(t, Waiting, entry.Placement)
		}
		assert.LessOrEqual(t, f.Status().Occupied, capacity)
	}

	assert.Equal(t, capacity*2, f.Status().WaitingCount)
}

func TestFacilityRelocationPreservesOrder(t *testing.T) {
	const capacity = 6
	all := []string{"CAR0000", "CAR0001", "CAR0002", "CAR0003", "CAR0004", "CAR0005"}

	for target := range all {
		t.Run(all[target], func(t *testing.T) {
			f, _ := newTestFacility(t, capacity)
			for _, p := range all {
				_, err := f.Enter(p)
				require.NoError(t, err)
			}

			receipt, err := f.Exit(all[target])
			require.NoError(t, err)
			assert.Equal(t, capacity-1-target, receipt.Relocated)

			want := make([]string, 0, capacity-1)
			want = append(want, all[:target]...)
			want = append(want, all[target+1:]...)
			assert.Equal(t, want, f.Status().ParkedPlates)
		})
	}
}

func TestFacilityPromotesLongestWaiting(t *testing.T) {
	f, _ := newTestFacility(t, 2)
	for _, p := range []string{"AAA0001", "AAA0002", "WAIT001", "WAIT002", "WAIT003"} {
		_, err := f.Enter(p)
		require.NoError(t, err)
	}

	receipt, err := f.Exit("AAA0002")
	require.NoError(t, err)
	require.NotNil(t, receipt.Promoted)
	assert.Equal(t, "WAIT001", receipt.Promoted.Plate)

	status := f.Status()
	assert.Equal(t, []string{"AAA0001", "WAIT001"}, status.ParkedPlates)
	assert.Equal(t, []string{"WAIT002", "WAIT003"}, status.WaitingPlates)
}

func TestFacilityPlateUniqueAcrossContainers(t *testing.T) {
	f, _ := newTestFacility(t, 3)
	ops := []struct {
		enter bool
		plate string
	}{
		{true, "P1"}, {true, "P2"}, {true, "P3"}, {true, "P4"}, {true, "P5"},
		{false, "P2"}, {true, "P2"}, {false, "P1"}, {true, "P1"}, {true, "P4"},
		{false, "P3"}, {true, "P6"},
	}

	for _, op := range ops {
		if op.enter {
			_, _ = f.Enter(op.plate)
		} else {
			_, _ = f.Exit(op.plate)
		}

		seen := map[string]int{}
		status := f.Status()
		for _, p := range status.ParkedPlates {
			seen[p]++
		}
		for _, p := range status.WaitingPlates {
			seen[p]++
		}
		for p, n := range seen {
			assert.Equal(t, 1, n, "plate %s appears %d times", p, n)
		}
	}
}

func TestFacilityRestore(t *testing.T) {
	f, clock := newTestFacility(t, 2)
	for _, p := range []string{"AAA0001", "AAA0002", "AAA0003", "AAA0004"} {
		_, err := f.Enter(p)
		require.NoError(t, err)
	}
	clock.Advance(time.Hour)
	_, err := f.Exit("AAA0001")
	require.NoError(t, err)

	state := f.Snapshot()

	g, _ := newTestFacility(t, 2)
	require.NoError(t, g.Restore(state))
	assert.Equal(t, state, g.Snapshot())
	assert.Equal(t, f.Status(), g.Status())
}

func TestFacilityRestoreRejectsInvalidState(t *testing.T) {
	f, _ := newTestFacility(t, 2)
	_, err := f.Enter("KEEP001")
	require.NoError(t, err)
	before := f.Snapshot()

	now := time.Unix(1700000000, 0)
	tests := []struct {
		name  string
		state State
	}{
		{"over capacity", State{Parked: []Car{NewCar("A1", now), NewCar("A2", now), NewCar("A3", now)}}},
		{"duplicate across containers", State{Parked: []Car{NewCar("A1", now)}, Waiting: []Car{NewCar("A1", now)}}},
		{"empty plate", State{Waiting: []Car{NewCar("", now)}}},
		{"negative served", State{Stats: Stats{TotalServed: -1}}},
		{"negative revenue", State{Stats: Stats{TotalRevenue: -5}}},
		{"NaN revenue", State{Stats: Stats{TotalRevenue: math.NaN()}}},
		{"infinite revenue", State{Stats: Stats{TotalRevenue: math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Restore(tt.state)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, before, f.Snapshot())
		})
	}
}

func TestWithHourlyRateIgnoresUnusableRates(t *testing.T) {
	for _, rate := range []float64{-1, math.NaN(), math.Inf(1)} {
		f := NewFacility(1, WithHourlyRate(rate))
		assert.Equal(t, DefaultHourlyRate, f.HourlyRate(), "rate %v", rate)
	}

	assert.Equal(t, 0.0, NewFacility(1, WithHourlyRate(0)).HourlyRate())
}

func TestStatsSnapshotHourlyAverage(t *testing.T) {
	started := time.Unix(1700000000, 0)
	s := Stats{TotalServed: 4, TotalRevenue: 80, StartedAt: started}

	snap := s.Snapshot(started.Add(4 * time.Hour))
	assert.Equal(t, 4*time.Hour, snap.Uptime)
	assert.InDelta(t, 20.0, snap.HourlyAverage, 0.0001)

	snap = s.Snapshot(started)
	assert.Zero(t, snap.HourlyAverage)
}
