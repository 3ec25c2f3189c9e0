package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

const bookingColumns = `
	id, client_user_id, staff_user_id, profession_type, target_date,
	booking_window_id_start, booking_window_id_end, status,
	conversation_sid, created_at, updated_at
`

// ErrBookingNotFound is returned when a lookup or delete matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrBookingConflict is returned when the bookings exclusion constraint
// rejects an insert. The service layer pre-checks for overlap, but two
// concurrent inserts can both pass that read; the constraint is what
// actually serializes them.
var ErrBookingConflict = errors.New("booking overlaps an existing booking")

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		booking.ID,
		booking.ClientUserID,
		booking.StaffUserID,
		booking.ProfessionType,
		booking.TargetDate,
		booking.BookingWindowIDStart,
		booking.BookingWindowIDEnd,
		booking.Status,
		booking.ConversationSID,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23P01" {
			return ErrBookingConflict
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.BookingStatus) error {
	query := `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) SetConversationSID(ctx context.Context, id uuid.UUID, sid string) error {
	query := `UPDATE bookings SET conversation_sid = $1, updated_at = $2 WHERE id = $3`

	if _, err := r.db.ExecContext(ctx, query, sid, time.Now(), id); err != nil {
		return fmt.Errorf("failed to set conversation sid: %w", err)
	}
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, clientUserID, staffUserID uuid.UUID, targetDate time.Time, windowIDStart int) error {
	query := `
		DELETE FROM bookings
		WHERE client_user_id = $1 AND staff_user_id = $2
		AND target_date = $3 AND booking_window_id_start = $4
	`
	result, err := r.db.ExecContext(ctx, query, clientUserID, staffUserID, targetDate, windowIDStart)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepository) ListForParticipants(ctx context.Context, clientUserID, staffUserID *uuid.UUID) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []interface{}{}

	if clientUserID != nil {
		args = append(args, *clientUserID)
		query += fmt.Sprintf(" AND client_user_id = $%d", len(args))
	}
	if staffUserID != nil {
		args = append(args, *staffUserID)
		query += fmt.Sprintf(" AND staff_user_id = $%d", len(args))
	}

	query += " ORDER BY target_date ASC, booking_window_id_start ASC"

	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ActiveOnDate(ctx context.Context, userID uuid.UUID, targetDate time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (client_user_id = $1 OR staff_user_id = $1)
		AND target_date = $2
		AND status NOT IN ($3, $4)
		ORDER BY booking_window_id_start ASC
	`
	var bookings []*model.Booking
	err := r.db.SelectContext(ctx, &bookings, query,
		userID, targetDate,
		model.BookingStatusClientCanceled, model.BookingStatusStaffCanceled)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) ListStaleInProgress(ctx context.Context, before time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND target_date < $2
		ORDER BY target_date ASC
	`
	var bookings []*model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, model.BookingStatusInProgress, before); err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	return bookings, nil
}
