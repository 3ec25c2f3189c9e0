package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/telehealth-api/internal/repository"
)

type userRepository struct {
	db *sqlx.DB
}

type incrementRepository struct {
	db    *sqlx.DB
	cache *cache.Cache
}

type availabilityRepository struct {
	db *sqlx.DB
}

type queueRepository struct {
	db *sqlx.DB
}

type bookingRepository struct {
	db *sqlx.DB
}

type bookingDetailRepository struct {
	db *sqlx.DB
}

type locationRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func NewIncrementRepository(db *sqlx.DB) repository.IncrementRepository {
	// The lookup table is static; cache it aggressively.
	return &incrementRepository{
		db:    db,
		cache: cache.New(12*time.Hour, 24*time.Hour),
	}
}

func NewAvailabilityRepository(db *sqlx.DB) repository.AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func NewQueueRepository(db *sqlx.DB) repository.QueueRepository {
	return &queueRepository{db: db}
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func NewBookingDetailRepository(db *sqlx.DB) repository.BookingDetailRepository {
	return &bookingDetailRepository{db: db}
}

func NewLocationRepository(db *sqlx.DB) repository.LocationRepository {
	return &locationRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

// withTx executes fn inside a transaction, rolling back on error.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}
