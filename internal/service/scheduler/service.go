package scheduler

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/config"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

// Candidate start times snap to the quarter hour even though windows are
// five minutes wide.
const startAlignmentMinutes = 15

// Service matches queued clients against staff availability minus both
// sides' existing bookings.
type Service struct {
	queueRepo     repository.QueueRepository
	availRepo     repository.AvailabilityRepository
	bookingRepo   repository.BookingRepository
	incrementRepo repository.IncrementRepository
	cfg           config.SchedulerConfig
	metrics       *metrics.Metrics
	pickStaff     func(n int) int
}

func NewService(
	queueRepo repository.QueueRepository,
	availRepo repository.AvailabilityRepository,
	bookingRepo repository.BookingRepository,
	incrementRepo repository.IncrementRepository,
	cfg config.SchedulerConfig,
	m *metrics.Metrics,
) *Service {
	return &Service{
		queueRepo:     queueRepo,
		availRepo:     availRepo,
		bookingRepo:   bookingRepo,
		incrementRepo: incrementRepo,
		cfg:           cfg,
		metrics:       m,
		pickStaff:     rand.Intn,
	}
}

// TimeSelect computes the bookable windows for the client's queued
// request. The requested date is scanned first; when it yields fewer
// than MinOptions, the same weekday in subsequent weeks is scanned too,
// up to LookaheadWeeks further out. No staff working the requested
// weekday at all drops the queue entry.
func (s *Service) TimeSelect(ctx context.Context, clientUserID uuid.UUID) (*model.TimeSlotResponse, error) {
	started := time.Now()

	entry, err := s.queueRepo.GetForClient(ctx, clientUserID)
	if err != nil {
		if err == postgres.ErrQueueEntryNotFound {
			return nil, errors.NotFound("queue entry", nil)
		}
		return nil, errors.Internal(err)
	}

	increments, err := s.incrementRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	availRows, err := s.availabilityFor(ctx, entry)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(availRows) == 0 {
		// Nobody works this weekday for this profession; the entry can
		// never match and holding it would starve the client silently.
		if err := s.queueRepo.DeleteForClient(ctx, entry.ClientUserID); err != nil {
			return nil, errors.Internal(err)
		}
		return nil, errors.Conflict("no practitioners available for the requested day, queue entry removed", nil)
	}

	var options []model.TimeSlotOption
	for week := 0; week <= s.cfg.LookaheadWeeks; week++ {
		if week > 0 && len(options) >= s.cfg.MinOptions {
			break
		}
		targetDate := entry.TargetDate.AddDate(0, 0, 7*week)
		weekOptions, err := s.optionsForDate(ctx, entry, targetDate, availRows, increments)
		if err != nil {
			return nil, errors.Internal(err)
		}
		options = append(options, weekOptions...)
	}

	sort.SliceStable(options, func(i, j int) bool {
		if !options[i].TargetDate.Equal(options[j].TargetDate) {
			return options[i].TargetDate.Before(options[j].TargetDate)
		}
		return options[i].BookingWindowIDStart < options[j].BookingWindowIDStart
	})

	if s.metrics != nil {
		s.metrics.MatcherLatency.Observe(time.Since(started).Seconds())
		s.metrics.MatcherOptions.Observe(float64(len(options)))
	}

	return &model.TimeSlotResponse{Options: options, TotalOptions: len(options)}, nil
}

func (s *Service) availabilityFor(ctx context.Context, entry *model.QueueEntry) ([]model.StaffAvailability, error) {
	day := model.DayOfWeekFromTime(entry.TargetDate)

	var genderMale *bool
	switch entry.MedicalGender {
	case model.GenderMale:
		v := true
		genderMale = &v
	case model.GenderFemale:
		v := false
		genderMale = &v
	}

	return s.availRepo.ListForDay(ctx, day, entry.ProfessionType, genderMale)
}

// optionsForDate walks each candidate start on the given date and keeps
// the ones where at least one staff member has the full run of windows
// free. When several staff can serve the same window, one is picked at
// random so load spreads instead of piling onto the first hit.
func (s *Service) optionsForDate(ctx context.Context, entry *model.QueueEntry, targetDate time.Time, availRows []model.StaffAvailability, increments []model.TimeIncrement) ([]model.TimeSlotOption, error) {
	free := make(map[uuid.UUID]map[int]bool)
	for _, row := range availRows {
		if free[row.StaffUserID] == nil {
			free[row.StaffUserID] = make(map[int]bool)
		}
		free[row.StaffUserID][row.BookingWindowID] = true
	}

	// The client's own bookings block every staff member's windows.
	clientBookings, err := s.bookingRepo.ActiveOnDate(ctx, entry.ClientUserID, targetDate)
	if err != nil {
		return nil, err
	}
	for staffID := range free {
		staffBookings, err := s.bookingRepo.ActiveOnDate(ctx, staffID, targetDate)
		if err != nil {
			return nil, err
		}
		for _, b := range append(staffBookings, clientBookings...) {
			for idx := b.BookingWindowIDStart; idx < b.BookingWindowIDEnd; idx++ {
				delete(free[staffID], idx)
			}
		}
	}

	idxDelta := entry.Duration/model.IncrementMinutes - 1

	var options []model.TimeSlotOption
	for start := 1; start+idxDelta <= model.IncrementsPerDay; start++ {
		if increments[start-1].StartMinutes()%startAlignmentMinutes != 0 {
			continue
		}

		var candidates []uuid.UUID
		for staffID, windows := range free {
			open := true
			for idx := start; idx <= start+idxDelta; idx++ {
				if !windows[idx] {
					open = false
					break
				}
			}
			if open {
				candidates = append(candidates, staffID)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		// Map iteration order is random already, but sort first so the
		// rand pick is the only source of nondeterminism.
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].String() < candidates[j].String()
		})

		options = append(options, model.TimeSlotOption{
			StaffUserID:          candidates[s.pickStaff(len(candidates))],
			TargetDate:           targetDate,
			BookingWindowIDStart: start,
			BookingWindowIDEnd:   start + idxDelta + 1,
			StartTime:            increments[start-1].StartTime,
			EndTime:              increments[start+idxDelta-1].EndTime,
		})
	}
	return options, nil
}
