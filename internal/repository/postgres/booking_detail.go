package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// ErrBookingDetailNotFound is returned when no detail row exists for a booking.
var ErrBookingDetailNotFound = errors.New("booking detail not found")

func (r *bookingDetailRepository) Create(ctx context.Context, detail *model.BookingDetail) error {
	query := `
		INSERT INTO booking_details (
			id, booking_id, details, location_id, image_keys, voice_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	detail.ID = uuid.New()
	detail.CreatedAt = time.Now()
	detail.UpdatedAt = detail.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		detail.ID,
		detail.BookingID,
		detail.Details,
		detail.LocationID,
		detail.ImageKeys,
		detail.VoiceKey,
		detail.CreatedAt,
		detail.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking detail: %w", err)
	}
	return nil
}

func (r *bookingDetailRepository) Get(ctx context.Context, bookingID uuid.UUID) (*model.BookingDetail, error) {
	query := `
		SELECT id, booking_id, details, location_id, image_keys, voice_key,
			   created_at, updated_at
		FROM booking_details
		WHERE booking_id = $1
	`
	var detail model.BookingDetail
	if err := r.db.GetContext(ctx, &detail, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingDetailNotFound
		}
		return nil, fmt.Errorf("failed to get booking detail: %w", err)
	}
	return &detail, nil
}

func (r *bookingDetailRepository) Update(ctx context.Context, detail *model.BookingDetail) error {
	query := `
		UPDATE booking_details
		SET details = $1, location_id = $2, image_keys = $3, voice_key = $4, updated_at = $5
		WHERE booking_id = $6
	`
	detail.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		detail.Details,
		detail.LocationID,
		detail.ImageKeys,
		detail.VoiceKey,
		detail.UpdatedAt,
		detail.BookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking detail: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingDetailNotFound
	}
	return nil
}

func (r *bookingDetailRepository) Delete(ctx context.Context, bookingID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM booking_details WHERE booking_id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to delete booking detail: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrBookingDetailNotFound
	}
	return nil
}

func (r *locationRepository) Get(ctx context.Context, idx int) (*model.Location, error) {
	var location model.Location
	if err := r.db.GetContext(ctx, &location,
		`SELECT idx, name FROM locations WHERE idx = $1`, idx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &location, nil
}

func (r *locationRepository) List(ctx context.Context) ([]model.Location, error) {
	var locations []model.Location
	if err := r.db.SelectContext(ctx, &locations,
		`SELECT idx, name FROM locations ORDER BY idx`); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}
