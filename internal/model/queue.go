package model

import (
	"time"

	"github.com/google/uuid"
)

// Medical gender preference values accepted on queue entries.
const (
	GenderMale         = "m"
	GenderFemale       = "f"
	GenderNoPreference = "np"
)

// QueueEntry is a client's outstanding request to be matched with a
// practitioner. A client holds at most one entry; posting a new one
// replaces the old.
type QueueEntry struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ClientUserID   uuid.UUID `db:"client_user_id" json:"client_user_id"`
	ProfessionType string    `db:"profession_type" json:"profession_type"`
	TargetDate     time.Time `db:"target_date" json:"target_date"`
	Priority       bool      `db:"priority" json:"priority"`
	Duration       int       `db:"duration" json:"duration"`
	MedicalGender  string    `db:"medical_gender" json:"medical_gender"`
	LocationID     *int      `db:"location_id" json:"location_id,omitempty"`
	Timezone       string    `db:"timezone" json:"timezone"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// QueueEntryRequest is the POST/DELETE payload for the client pool.
type QueueEntryRequest struct {
	ProfessionType string    `json:"profession_type" binding:"required"`
	TargetDate     time.Time `json:"target_date" binding:"required"`
	Priority       bool      `json:"priority"`
	Duration       int       `json:"duration" binding:"omitempty,min=10,max=240"`
	MedicalGender  string    `json:"medical_gender" binding:"omitempty,oneof=m f np"`
	LocationID     *int      `json:"location_id"`
	Timezone       string    `json:"timezone"`
}

// QueueResponse is the list shape returned by the queue endpoints.
type QueueResponse struct {
	Queue      []*QueueEntry `json:"queue"`
	TotalQueue int           `json:"total_queue"`
}
