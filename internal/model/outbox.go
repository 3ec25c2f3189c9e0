package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Booking lifecycle event types written to the outbox.
const (
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingDeleted       = "booking.deleted"
)

// OutboxEvent is a pending domain event persisted in the same
// transaction as the change it describes. The worker publishes pending
// events to the message broker and marks them processed.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// BookingEventPayload is the payload serialized into booking outbox events.
type BookingEventPayload struct {
	BookingID    uuid.UUID     `json:"booking_id"`
	ClientUserID uuid.UUID     `json:"client_user_id"`
	StaffUserID  uuid.UUID     `json:"staff_user_id"`
	TargetDate   time.Time     `json:"target_date"`
	Status       BookingStatus `json:"status"`
}
