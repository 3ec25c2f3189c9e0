package model

import (
	"mime/multipart"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Attachment limits enforced on booking-detail uploads.
const (
	MaxDetailImages   = 4
	MaxDetailVoice    = 1
	MaxAttachmentSize = 500 << 20 // 500 MB
)

// AllowedImageExtensions lists the accepted image upload types.
var AllowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// AllowedVoiceExtensions lists the accepted voice-recording upload types.
var AllowedVoiceExtensions = []string{".mp3", ".m4a", ".wav", ".ogg"}

// BookingDetail holds the optional text, location and media attached to
// a booking. Exactly one row per booking; media lives in object storage
// under the booking's key prefix.
type BookingDetail struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	BookingID  uuid.UUID      `db:"booking_id" json:"booking_id"`
	Details    string         `db:"details" json:"details"`
	LocationID *int           `db:"location_id" json:"location_id,omitempty"`
	ImageKeys  pq.StringArray `db:"image_keys" json:"image_keys"`
	VoiceKey   *string        `db:"voice_key" json:"voice_key,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// BookingDetailUpload carries the parsed multipart form for detail
// writes. On update, nil fields are left untouched; ClearImages and
// ClearVoice record that the client sent the field explicitly empty,
// which removes the stored media.
type BookingDetailUpload struct {
	Details     *string
	LocationID  *int
	Images      []*multipart.FileHeader
	Voice       *multipart.FileHeader
	ClearImages bool
	ClearVoice  bool
}

// BookingDetailResponse resolves stored keys into display data: the
// location name and time-limited download URLs.
type BookingDetailResponse struct {
	BookingID    uuid.UUID `json:"booking_id"`
	Details      string    `json:"details"`
	LocationID   *int      `json:"location_id,omitempty"`
	LocationName string    `json:"location_name,omitempty"`
	ImageURLs    []string  `json:"image_urls"`
	VoiceURL     string    `json:"voice_url,omitempty"`
}

// Location is a row of the territory lookup used to resolve a booking
// detail's location_id to a display name.
type Location struct {
	Idx  int    `db:"idx" json:"idx"`
	Name string `db:"name" json:"name"`
}
