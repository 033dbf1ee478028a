package parking

import "time"

type Stats struct {
	TotalServed  int64
	TotalRevenue float64
	StartedAt    time.Time
}

func NewStats(startedAt time.Time) Stats {
	return Stats{StartedAt: startedAt}
}

func (s *Stats) record(fee float64) {
	s.TotalServed++
	if fee > 0 {
		s.TotalRevenue += fee
	}
}

type StatsSnapshot struct {
	TotalServed   int64         `json:"total_served"`
	TotalRevenue  float64       `json:"total_revenue"`
	StartedAt     time.Time     `json:"started_at"`
	Uptime        time.Duration `json:"uptime"`
	HourlyAverage float64       `json:"hourly_average"`
}

func (s Stats) Snapshot(now time.Time) StatsSnapshot {
	uptime := now.Sub(s.StartedAt)
	if uptime < 0 {
		uptime = 0
	}

	snap := StatsSnapshot{
		TotalServed:  s.TotalServed,
		TotalRevenue: s.TotalRevenue,
		StartedAt:    s.StartedAt,
		Uptime:       uptime,
	}
	if hours := uptime.Hours(); hours > 0 {
		snap.HourlyAverage = s.TotalRevenue / hours
	}
	return snap
}
