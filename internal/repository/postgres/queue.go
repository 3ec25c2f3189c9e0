package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

const queueColumns = `
	id, client_user_id, profession_type, target_date, priority,
	duration, medical_gender, location_id, timezone, created_at, updated_at
`

// ErrQueueEntryNotFound is returned when a delete matches no entry.
var ErrQueueEntryNotFound = errors.New("queue entry not found")

// Upsert replaces any existing entry for the client. Each client holds
// at most one pending scheduling request.
func (r *queueRepository) Upsert(ctx context.Context, entry *model.QueueEntry) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM queue_client_pool WHERE client_user_id = $1`, entry.ClientUserID); err != nil {
			return fmt.Errorf("failed to clear prior queue entry: %w", err)
		}

		entry.ID = uuid.New()
		entry.CreatedAt = time.Now()
		entry.UpdatedAt = entry.CreatedAt

		query := `
			INSERT INTO queue_client_pool (` + queueColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, query,
			entry.ID,
			entry.ClientUserID,
			entry.ProfessionType,
			entry.TargetDate,
			entry.Priority,
			entry.Duration,
			entry.MedicalGender,
			entry.LocationID,
			entry.Timezone,
			entry.CreatedAt,
			entry.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert queue entry: %w", err)
		}
		return nil
	})
}

func (r *queueRepository) GetForClient(ctx context.Context, clientUserID uuid.UUID) (*model.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_client_pool WHERE client_user_id = $1`

	var entry model.QueueEntry
	if err := r.db.GetContext(ctx, &entry, query, clientUserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &entry, nil
}

func (r *queueRepository) List(ctx context.Context) ([]*model.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_client_pool
		ORDER BY priority DESC, target_date ASC
	`
	var entries []*model.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}
	return entries, nil
}

func (r *queueRepository) ListForClient(ctx context.Context, clientUserID uuid.UUID) ([]*model.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_client_pool
		WHERE client_user_id = $1
		ORDER BY priority DESC, target_date ASC
	`
	var entries []*model.QueueEntry
	if err := r.db.SelectContext(ctx, &entries, query, clientUserID); err != nil {
		return nil, fmt.Errorf("failed to list queue for client: %w", err)
	}
	return entries, nil
}

func (r *queueRepository) Delete(ctx context.Context, clientUserID uuid.UUID, targetDate time.Time, professionType string) error {
	query := `
		DELETE FROM queue_client_pool
		WHERE client_user_id = $1 AND target_date = $2 AND profession_type = $3
	`
	result, err := r.db.ExecContext(ctx, query, clientUserID, targetDate, professionType)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrQueueEntryNotFound
	}
	return nil
}

func (r *queueRepository) DeleteForClient(ctx context.Context, clientUserID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM queue_client_pool WHERE client_user_id = $1`, clientUserID); err != nil {
		return fmt.Errorf("failed to delete queue entries for client: %w", err)
	}
	return nil
}
