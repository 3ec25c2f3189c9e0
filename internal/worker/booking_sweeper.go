package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/comms"
	"github.com/jwalitptl/telehealth-api/pkg/logger"
)

// BookingSweeper completes In Progress bookings whose window ended more
// than the grace period ago, and closes their video rooms. Practitioners
// forget to end sessions; without the sweep those bookings block the
// participants' windows forever.
type BookingSweeper struct {
	repo          repository.BookingRepository
	comms         comms.Client
	gracePeriod   time.Duration
	sweepInterval time.Duration
	logger        *logger.Logger
}

func NewBookingSweeper(repo repository.BookingRepository, commsClient comms.Client, gracePeriod, sweepInterval time.Duration, log *logger.Logger) *BookingSweeper {
	return &BookingSweeper{
		repo:          repo,
		comms:         commsClient,
		gracePeriod:   gracePeriod,
		sweepInterval: sweepInterval,
		logger:        log,
	}
}

func (w *BookingSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("Starting booking sweeper")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down booking sweeper")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "Booking sweep failed")
			}
		}
	}
}

func (w *BookingSweeper) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.gracePeriod)

	stale, err := w.repo.ListStaleInProgress(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale bookings: %w", err)
	}

	for _, booking := range stale {
		if err := w.repo.UpdateStatus(ctx, booking.ID, model.BookingStatusCompleted); err != nil {
			w.logger.Error(err, "Failed to complete stale booking", "booking_id", booking.ID.String())
			continue
		}
		if err := w.comms.CompleteRoom(ctx, comms.RoomNameFor(booking.ID.String())); err != nil {
			w.logger.Error(err, "Failed to close video room", "booking_id", booking.ID.String())
		}
	}

	if len(stale) > 0 {
		w.logger.Info("Completed stale bookings", "count", len(stale))
	}
	return nil
}
