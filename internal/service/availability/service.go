package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

// Service converts between the human-facing availability ranges and the
// per-slot rows the scheduler queries. Ranges are expanded into one row
// per 5-minute booking window on write and compressed back on read.
type Service struct {
	repo          repository.AvailabilityRepository
	incrementRepo repository.IncrementRepository
	userRepo      repository.UserRepository
}

func NewService(repo repository.AvailabilityRepository, incrementRepo repository.IncrementRepository, userRepo repository.UserRepository) *Service {
	return &Service{
		repo:          repo,
		incrementRepo: incrementRepo,
		userRepo:      userRepo,
	}
}

// SetAvailability replaces the staff member's whole weekly availability
// with the submitted ranges. Range boundaries must land exactly on
// increment boundaries; submitting ranges is destructive by design (the
// previous availability is dropped, the new payload is truth).
func (s *Service) SetAvailability(ctx context.Context, staffUserID uuid.UUID, req *model.SetAvailabilityRequest) error {
	exists, err := s.userRepo.Exists(ctx, staffUserID, model.UserTypeStaff)
	if err != nil {
		return errors.Internal(err)
	}
	if !exists {
		return errors.NotFound("staff member", nil)
	}

	increments, err := s.incrementRepo.List(ctx)
	if err != nil {
		return errors.Internal(err)
	}

	// De-duplicate per day so overlapping submitted ranges collapse into
	// single rows.
	seen := make(map[model.DayOfWeek]map[int]bool)
	var rows []model.StaffAvailability

	for _, rng := range req.Availability {
		if !rng.DayOfWeek.Valid() {
			return errors.BadRequest(fmt.Sprintf("invalid day of week %q", rng.DayOfWeek), nil)
		}

		startClock, err := normalizeClock(rng.StartTime)
		if err != nil {
			return errors.BadRequest(fmt.Sprintf("invalid start time %q", rng.StartTime), err)
		}
		endClock, err := normalizeClock(rng.EndTime)
		if err != nil {
			return errors.BadRequest(fmt.Sprintf("invalid end time %q", rng.EndTime), err)
		}
		if startClock >= endClock {
			return errors.BadRequest("start time must be before end time", nil)
		}

		startIdx, endIdx := -1, -1
		for _, inc := range increments {
			if inc.StartTime == startClock {
				startIdx = inc.Idx
			}
			if inc.EndTime == endClock {
				endIdx = inc.Idx
			}
			if startIdx != -1 && endIdx != -1 {
				break
			}
		}
		if startIdx == -1 || endIdx == -1 {
			return errors.BadRequest("availability times must align to booking increment boundaries", nil)
		}

		if seen[rng.DayOfWeek] == nil {
			seen[rng.DayOfWeek] = make(map[int]bool)
		}
		for idx := startIdx; idx <= endIdx; idx++ {
			if seen[rng.DayOfWeek][idx] {
				continue
			}
			seen[rng.DayOfWeek][idx] = true
			rows = append(rows, model.StaffAvailability{
				DayOfWeek:       rng.DayOfWeek,
				BookingWindowID: idx,
			})
		}
	}

	if err := s.repo.Replace(ctx, staffUserID, rows); err != nil {
		return errors.Internal(err)
	}
	return nil
}

// GetAvailability reconstructs contiguous ranges from the stored
// per-slot rows, Monday through Sunday. A nil slice means the staff
// member has no stored availability.
func (s *Service) GetAvailability(ctx context.Context, staffUserID uuid.UUID) ([]model.AvailabilityRange, error) {
	exists, err := s.userRepo.Exists(ctx, staffUserID, model.UserTypeStaff)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !exists {
		return nil, errors.NotFound("staff member", nil)
	}

	rows, err := s.repo.ListForStaff(ctx, staffUserID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	increments, err := s.incrementRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return compressRows(rows, increments), nil
}

// compressRows folds ordered per-slot rows into [start,end) ranges. A
// range closes whenever the day changes or the window id is not exactly
// one past the previous id. Each day accumulates into its own bucket so
// output order is always Monday first.
func compressRows(rows []model.StaffAvailability, increments []model.TimeIncrement) []model.AvailabilityRange {
	buckets := make(map[model.DayOfWeek][]model.AvailabilityRange, len(model.WeekDays))

	clockFor := func(idx int) (string, string) {
		inc := increments[idx-1]
		return inc.StartTime, inc.EndTime
	}

	rangeStart := rows[0].BookingWindowID
	prev := rows[0]

	flush := func(day model.DayOfWeek, startID, endID int) {
		start, _ := clockFor(startID)
		_, end := clockFor(endID)
		buckets[day] = append(buckets[day], model.AvailabilityRange{
			DayOfWeek: day,
			StartTime: start,
			EndTime:   end,
		})
	}

	for _, row := range rows[1:] {
		if row.DayOfWeek == prev.DayOfWeek && row.BookingWindowID == prev.BookingWindowID+1 {
			prev = row
			continue
		}
		flush(prev.DayOfWeek, rangeStart, prev.BookingWindowID)
		rangeStart = row.BookingWindowID
		prev = row
	}
	flush(prev.DayOfWeek, rangeStart, prev.BookingWindowID)

	var out []model.AvailabilityRange
	for _, day := range model.WeekDays {
		out = append(out, buckets[day]...)
	}
	return out
}

// normalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeClock(clock string) (string, error) {
	if t, err := time.Parse("15:04:05", clock); err == nil {
		return t.Format("15:04:05"), nil
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}
