package parking

import (
	"math"
	"time"
)

const (
	DefaultHourlyRate = 10.0
	secondsPerHour    = 3600
)

// BilledHours rounds the parked interval up to whole hours. Unset timestamps
// and non-positive intervals bill nothing.
func BilledHours(arrivedAt, departedAt time.Time) int64 {
	if arrivedAt.IsZero() || departedAt.IsZero() {
		return 0
	}

	elapsed := departedAt.Unix() - arrivedAt.Unix()
	if elapsed <= 0 {
		return 0
	}

	hours := elapsed / secondsPerHour
	if elapsed%secondsPerHour != 0 {
		hours++
	}
	return hours
}

func Fee(arrivedAt, departedAt time.Time, hourlyRate float64) float64 {
	return float64(BilledHours(arrivedAt, departedAt)) * hourlyRate
}

// validAmount reports whether v is a usable rate or revenue: finite and not
// negative. NaN fails every comparison, so it is rejected too.
func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}
