package lookup

import (
	"context"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/errors"
)

// Service serves the static reference tables: the 5-minute booking
// increments and the body-location list.
type Service struct {
	incrementRepo repository.IncrementRepository
	locationRepo  repository.LocationRepository
}

func NewService(incrementRepo repository.IncrementRepository, locationRepo repository.LocationRepository) *Service {
	return &Service{
		incrementRepo: incrementRepo,
		locationRepo:  locationRepo,
	}
}

func (s *Service) Increments(ctx context.Context) ([]model.TimeIncrement, error) {
	increments, err := s.incrementRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return increments, nil
}

func (s *Service) Locations(ctx context.Context) ([]model.Location, error) {
	locations, err := s.locationRepo.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return locations, nil
}
