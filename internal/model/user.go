package model

import (
	"time"

	"github.com/google/uuid"
)

// User type constants
const (
	UserTypeClient = "client"
	UserTypeStaff  = "staff"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User represents a platform account, either a client or a staff
// practitioner. Staff carry the fields the scheduler filters on:
// profession type, biological sex, and the auto-confirm setting.
type User struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	FirstName         string     `json:"first_name" db:"first_name"`
	LastName          string     `json:"last_name" db:"last_name"`
	Type              string     `json:"type" db:"type"`
	Status            string     `json:"status" db:"status"`
	BiologicalSexMale bool       `json:"biological_sex_male" db:"biological_sex_male"`
	ProfessionType    *string    `json:"profession_type,omitempty" db:"profession_type"`
	AutoConfirm       bool       `json:"auto_confirm" db:"auto_confirm"`
	Timezone          string     `json:"timezone" db:"timezone"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsStaff reports whether the user is a staff practitioner.
func (u *User) IsStaff() bool {
	return u.Type == UserTypeStaff
}
