package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

const incrementCacheKey = "booking_time_increments"

func (r *incrementRepository) List(ctx context.Context) ([]model.TimeIncrement, error) {
	if cached, ok := r.cache.Get(incrementCacheKey); ok {
		return cached.([]model.TimeIncrement), nil
	}

	query := `
		SELECT idx, to_char(start_time, 'HH24:MI:SS') AS start_time,
			   to_char(end_time, 'HH24:MI:SS') AS end_time
		FROM booking_time_increments
		ORDER BY idx ASC
	`
	var increments []model.TimeIncrement
	if err := r.db.SelectContext(ctx, &increments, query); err != nil {
		return nil, fmt.Errorf("failed to list booking time increments: %w", err)
	}

	r.cache.SetDefault(incrementCacheKey, increments)
	return increments, nil
}
