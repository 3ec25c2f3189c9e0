package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// day_of_week sorts by its position in the week, not alphabetically.
const dayOrderCase = `
	CASE day_of_week
		WHEN 'Monday' THEN 1
		WHEN 'Tuesday' THEN 2
		WHEN 'Wednesday' THEN 3
		WHEN 'Thursday' THEN 4
		WHEN 'Friday' THEN 5
		WHEN 'Saturday' THEN 6
		WHEN 'Sunday' THEN 7
	END
`

func (r *availabilityRepository) Replace(ctx context.Context, staffUserID uuid.UUID, rows []model.StaffAvailability) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM staff_availability WHERE staff_user_id = $1`, staffUserID); err != nil {
			return fmt.Errorf("failed to clear staff availability: %w", err)
		}

		query := `
			INSERT INTO staff_availability (id, staff_user_id, day_of_week, booking_window_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		now := time.Now()
		for i := range rows {
			rows[i].ID = uuid.New()
			rows[i].StaffUserID = staffUserID
			rows[i].CreatedAt = now
			if _, err := tx.ExecContext(ctx, query,
				rows[i].ID,
				rows[i].StaffUserID,
				rows[i].DayOfWeek,
				rows[i].BookingWindowID,
				rows[i].CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert availability row: %w", err)
			}
		}
		return nil
	})
}

func (r *availabilityRepository) ListForStaff(ctx context.Context, staffUserID uuid.UUID) ([]model.StaffAvailability, error) {
	query := `
		SELECT id, staff_user_id, day_of_week, booking_window_id, created_at
		FROM staff_availability
		WHERE staff_user_id = $1
		ORDER BY ` + dayOrderCase + ` ASC, booking_window_id ASC
	`
	var rows []model.StaffAvailability
	if err := r.db.SelectContext(ctx, &rows, query, staffUserID); err != nil {
		return nil, fmt.Errorf("failed to list staff availability: %w", err)
	}
	return rows, nil
}

func (r *availabilityRepository) ListForDay(ctx context.Context, day model.DayOfWeek, professionType string, genderMale *bool) ([]model.StaffAvailability, error) {
	query := `
		SELECT sa.id, sa.staff_user_id, sa.day_of_week, sa.booking_window_id, sa.created_at
		FROM staff_availability sa
		JOIN users u ON u.id = sa.staff_user_id
		WHERE sa.day_of_week = $1
		AND u.type = $2
		AND u.status = $3
		AND u.profession_type = $4
	`
	args := []interface{}{day, model.UserTypeStaff, model.UserStatusActive, professionType}

	if genderMale != nil {
		query += fmt.Sprintf(" AND u.biological_sex_male = $%d", len(args)+1)
		args = append(args, *genderMale)
	}

	query += " ORDER BY sa.staff_user_id ASC, sa.booking_window_id ASC"

	var rows []model.StaffAvailability
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list availability for day: %w", err)
	}
	return rows, nil
}
