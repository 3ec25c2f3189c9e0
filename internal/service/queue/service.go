package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/internal/repository/postgres"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

const defaultDuration = 20 // minutes

// Service manages the pool of clients waiting to be matched with a
// practitioner.
type Service struct {
	repo     repository.QueueRepository
	userRepo repository.UserRepository
	metrics  *metrics.Metrics
}

func NewService(repo repository.QueueRepository, userRepo repository.UserRepository, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		userRepo: userRepo,
		metrics:  m,
	}
}

// Enqueue adds the client to the pool, replacing any entry they already
// hold. Duration defaults to 20 minutes, gender preference to none, and
// the target date is truncated to midnight.
func (s *Service) Enqueue(ctx context.Context, clientUserID uuid.UUID, req *model.QueueEntryRequest) (*model.QueueEntry, error) {
	exists, err := s.userRepo.Exists(ctx, clientUserID, model.UserTypeClient)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if !exists {
		return nil, errors.NotFound("client", nil)
	}

	entry := &model.QueueEntry{
		ID:             uuid.New(),
		ClientUserID:   clientUserID,
		ProfessionType: req.ProfessionType,
		TargetDate:     truncateToDate(req.TargetDate),
		Priority:       req.Priority,
		Duration:       req.Duration,
		MedicalGender:  req.MedicalGender,
		LocationID:     req.LocationID,
		Timezone:       req.Timezone,
	}
	if entry.Duration == 0 {
		entry.Duration = defaultDuration
	}
	if entry.MedicalGender == "" {
		entry.MedicalGender = model.GenderNoPreference
	}
	if entry.Timezone == "" {
		entry.Timezone = "UTC"
	}

	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, errors.Internal(err)
	}
	s.refreshGauge(ctx)
	return entry, nil
}

// List returns the whole pool in match order: priority entries first,
// then earliest target date.
func (s *Service) List(ctx context.Context) (*model.QueueResponse, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.QueueResponse{Queue: entries, TotalQueue: len(entries)}, nil
}

// ListForClient returns the client's own entries in match order.
func (s *Service) ListForClient(ctx context.Context, clientUserID uuid.UUID) (*model.QueueResponse, error) {
	entries, err := s.repo.ListForClient(ctx, clientUserID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.QueueResponse{Queue: entries, TotalQueue: len(entries)}, nil
}

// Delete removes the entry matching (client, target date, profession).
func (s *Service) Delete(ctx context.Context, clientUserID uuid.UUID, targetDate time.Time, professionType string) error {
	err := s.repo.Delete(ctx, clientUserID, truncateToDate(targetDate), professionType)
	if err == postgres.ErrQueueEntryNotFound {
		return errors.NotFound("queue entry", nil)
	}
	if err != nil {
		return errors.Internal(err)
	}
	s.refreshGauge(ctx)
	return nil
}

func (s *Service) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	entries, err := s.repo.List(ctx)
	if err != nil {
		return
	}
	s.metrics.QueueEntriesActive.Set(float64(len(entries)))
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
