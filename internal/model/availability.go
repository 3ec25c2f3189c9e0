package model

import (
	"time"

	"github.com/google/uuid"
)

// DayOfWeek names a weekday as stored in staff availability rows.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

// WeekDays lists the days in display order, Monday first.
var WeekDays = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// DayOfWeekFromTime maps a calendar date onto the stored day name.
func DayOfWeekFromTime(t time.Time) DayOfWeek {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Valid reports whether d is one of the seven stored day names.
func (d DayOfWeek) Valid() bool {
	for _, day := range WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

// StaffAvailability is one stored booking window a staff member keeps
// open every week. One row per (staff, day, window).
type StaffAvailability struct {
	ID              uuid.UUID `db:"id" json:"id"`
	StaffUserID     uuid.UUID `db:"staff_user_id" json:"staff_user_id"`
	DayOfWeek       DayOfWeek `db:"day_of_week" json:"day_of_week"`
	BookingWindowID int       `db:"booking_window_id" json:"booking_window_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// AvailabilityRange is the human-facing form of availability: a
// contiguous [start,end) span on one day of the week.
type AvailabilityRange struct {
	DayOfWeek DayOfWeek `json:"day_of_week" binding:"required,dayofweek"`
	StartTime string    `json:"start_time" binding:"required"`
	EndTime   string    `json:"end_time" binding:"required"`
}

// SetAvailabilityRequest replaces a staff member's whole availability.
type SetAvailabilityRequest struct {
	Availability []AvailabilityRange `json:"availability" binding:"required,dive"`
}

// AvailabilityResponse carries the reconstructed ranges, Monday first.
type AvailabilityResponse struct {
	Availability []AvailabilityRange `json:"availability"`
}
