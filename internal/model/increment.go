package model

import "time"

// IncrementsPerDay is the number of fixed 5-minute booking windows in a day.
const IncrementsPerDay = 288

// IncrementMinutes is the width of a single booking window.
const IncrementMinutes = 5

// TimeIncrement is one row of the static booking-window lookup table.
// The table partitions a day into contiguous 5-minute windows with
// sequential ids starting at 1; it is seeded once and never mutated.
type TimeIncrement struct {
	Idx       int    `db:"idx" json:"idx"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// StartMinutes returns the window start as minutes since midnight.
func (t TimeIncrement) StartMinutes() int {
	parsed, err := time.Parse("15:04:05", t.StartTime)
	if err != nil {
		return 0
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// EndMinutes returns the window end as minutes since midnight. The last
// window of the day ends at 00:00:00, which maps to minute 1440.
func (t TimeIncrement) EndMinutes() int {
	parsed, err := time.Parse("15:04:05", t.EndTime)
	if err != nil {
		return 0
	}
	m := parsed.Hour()*60 + parsed.Minute()
	if m == 0 {
		return 24 * 60
	}
	return m
}
