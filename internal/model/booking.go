package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPendingStaffAcceptance BookingStatus = "Pending Staff Acceptance"
	BookingStatusAccepted               BookingStatus = "Accepted"
	BookingStatusConfirmed              BookingStatus = "Confirmed"
	BookingStatusInProgress             BookingStatus = "In Progress"
	BookingStatusClientCanceled         BookingStatus = "Client Canceled"
	BookingStatusStaffCanceled          BookingStatus = "Staff Canceled"
	BookingStatusCompleted              BookingStatus = "Completed"
)

// Canceled reports whether the status is one of the canceled states.
// Canceled bookings never count toward overlap checks.
func (s BookingStatus) Canceled() bool {
	return s == BookingStatusClientCanceled || s == BookingStatusStaffCanceled
}

// Booking is a pending or confirmed appointment occupying a contiguous
// run of booking windows on one date. Bookings are retained as a
// historical log; cancellation is a status change, not a delete.
type Booking struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	ClientUserID         uuid.UUID     `db:"client_user_id" json:"client_user_id"`
	StaffUserID          uuid.UUID     `db:"staff_user_id" json:"staff_user_id"`
	ProfessionType       string        `db:"profession_type" json:"profession_type"`
	TargetDate           time.Time     `db:"target_date" json:"target_date"`
	BookingWindowIDStart int           `db:"booking_window_id_start" json:"booking_window_id_start"`
	BookingWindowIDEnd   int           `db:"booking_window_id_end" json:"booking_window_id_end"`
	Status               BookingStatus `db:"status" json:"status"`
	ConversationSID      *string       `db:"conversation_sid" json:"conversation_sid,omitempty"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateBookingRequest books a window previously offered by the matcher.
type CreateBookingRequest struct {
	TargetDate           time.Time `json:"target_date" binding:"required"`
	BookingWindowIDStart int       `json:"booking_window_id_start" binding:"required,min=1,max=288"`
	BookingWindowIDEnd   int       `json:"booking_window_id_end" binding:"required,min=1,max=288"`
	ProfessionType       string    `json:"profession_type" binding:"required"`
}

// UpdateBookingRequest changes only the status of an existing booking.
type UpdateBookingRequest struct {
	Status BookingStatus `json:"status" binding:"required"`
}

// DeleteBookingRequest identifies a booking by its full tuple. Hard
// deletion is an exception path; normal cancellation goes through PUT.
type DeleteBookingRequest struct {
	ClientUserID         uuid.UUID `json:"client_user_id" binding:"required"`
	StaffUserID          uuid.UUID `json:"staff_user_id" binding:"required"`
	TargetDate           time.Time `json:"target_date" binding:"required"`
	BookingWindowIDStart int       `json:"booking_window_id_start" binding:"required"`
}

// BookingResponse is returned on creation, together with the access
// token for the provisioned conversation when provisioning succeeded.
type BookingResponse struct {
	Booking     *Booking `json:"booking"`
	AccessToken string   `json:"access_token,omitempty"`
}

// BookingsResponse is the list shape for booking queries.
type BookingsResponse struct {
	Bookings    []*Booking `json:"bookings"`
	AllBookings int        `json:"all_bookings"`
}

// TimeSlotOption is one bookable window offered to a queued client.
type TimeSlotOption struct {
	StaffUserID          uuid.UUID `json:"staff_user_id"`
	TargetDate           time.Time `json:"target_date"`
	BookingWindowIDStart int       `json:"booking_window_id_start"`
	BookingWindowIDEnd   int       `json:"booking_window_id_end"`
	StartTime            string    `json:"start_time"`
	EndTime              string    `json:"end_time"`
}

// TimeSlotResponse is returned by the client time-select endpoint.
type TimeSlotResponse struct {
	Options      []TimeSlotOption `json:"options"`
	TotalOptions int              `json:"total_options"`
}
