package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles client and staff accounts.
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Exists(ctx context.Context, id uuid.UUID, userType string) (bool, error)
		Update(ctx context.Context, user *model.User) error
	}

	// IncrementRepository serves the static booking-window lookup table.
	IncrementRepository interface {
		List(ctx context.Context) ([]model.TimeIncrement, error)
	}

	// AvailabilityRepository stores per-slot staff availability rows.
	AvailabilityRepository interface {
		// Replace deletes every row for the staff member and inserts the
		// given rows in one transaction.
		Replace(ctx context.Context, staffUserID uuid.UUID, rows []model.StaffAvailability) error
		// ListForStaff returns rows ordered by day of week, then window id.
		ListForStaff(ctx context.Context, staffUserID uuid.UUID) ([]model.StaffAvailability, error)
		// ListForDay returns rows for every staff member available on the
		// given day, filtered by profession type and, when genderMale is
		// non-nil, by the staff member's biological sex.
		ListForDay(ctx context.Context, day model.DayOfWeek, professionType string, genderMale *bool) ([]model.StaffAvailability, error)
	}

	// QueueRepository stores pending client scheduling requests.
	QueueRepository interface {
		Upsert(ctx context.Context, entry *model.QueueEntry) error
		GetForClient(ctx context.Context, clientUserID uuid.UUID) (*model.QueueEntry, error)
		List(ctx context.Context) ([]*model.QueueEntry, error)
		ListForClient(ctx context.Context, clientUserID uuid.UUID) ([]*model.QueueEntry, error)
		Delete(ctx context.Context, clientUserID uuid.UUID, targetDate time.Time, professionType string) error
		DeleteForClient(ctx context.Context, clientUserID uuid.UUID) error
	}

	// BookingRepository is the persisted appointment ledger.
	BookingRepository interface {
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error
		SetConversationSID(ctx context.Context, id uuid.UUID, sid string) error
		Delete(ctx context.Context, clientUserID, staffUserID uuid.UUID, targetDate time.Time, windowIDStart int) error
		ListForParticipants(ctx context.Context, clientUserID, staffUserID *uuid.UUID) ([]*model.Booking, error)
		// ActiveOnDate returns non-canceled bookings for the user (as
		// either participant) on the given date.
		ActiveOnDate(ctx context.Context, userID uuid.UUID, targetDate time.Time) ([]*model.Booking, error)
		// ListStaleInProgress returns In Progress bookings whose end
		// window passed more than the grace period ago.
		ListStaleInProgress(ctx context.Context, before time.Time) ([]*model.Booking, error)
	}

	// BookingDetailRepository stores the 1:1 detail row per booking.
	BookingDetailRepository interface {
		Create(ctx context.Context, detail *model.BookingDetail) error
		Get(ctx context.Context, bookingID uuid.UUID) (*model.BookingDetail, error)
		Update(ctx context.Context, detail *model.BookingDetail) error
		Delete(ctx context.Context, bookingID uuid.UUID) error
	}

	// LocationRepository resolves location ids to display names.
	LocationRepository interface {
		// Get returns nil when no location has the given idx.
		Get(ctx context.Context, idx int) (*model.Location, error)
		List(ctx context.Context) ([]model.Location, error)
	}

	// OutboxRepository stores pending domain events.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
