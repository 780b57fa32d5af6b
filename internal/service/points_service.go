package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/leaflog/leaflog-backend/internal/logctx"
	"github.com/leaflog/leaflog-backend/internal/model"
	"github.com/leaflog/leaflog-backend/internal/repository"
)

type AwardResult struct {
	LocationID  string
	OwnerUID    string
	PointsGiven int64
}

type PointsService interface {
	// Award gives the configured increment from uid to the location's owner.
	// A second award for the same pair returns ErrAlreadyInteracted and
	// changes nothing.
	Award(ctx context.Context, locationID, uid string) (*AwardResult, error)
	HasInteracted(ctx context.Context, locationID, uid string) (bool, error)
}

type pointsService struct {
	locations    repository.LocationRepository
	profiles     repository.ProfileRepository
	interactions repository.InteractionRepository
	notify       NotificationService
	increment    int64
}

func NewPointsService(
	locations repository.LocationRepository,
	profiles repository.ProfileRepository,
	interactions repository.InteractionRepository,
	notify NotificationService,
	increment int64,
) PointsService {
	if increment <= 0 {
		increment = 1
	}
	return &pointsService{
		locations:    locations,
		profiles:     profiles,
		interactions: interactions,
		notify:       notify,
		increment:    increment,
	}
}

func (s *pointsService) Award(ctx context.Context, locationID, uid string) (*AwardResult, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	if locationID == "" {
		return nil, fmt.Errorf("%w: location id is required", ErrInvalidInput)
	}
	loc, err := s.locations.FindByID(ctx, locationID)
	if err != nil {
		return nil, fromRepo(err)
	}
	if loc.UserID == uid {
		return nil, ErrSelfAward
	}
	actor, err := s.profiles.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: create a profile before awarding points", ErrForbidden)
		}
		return nil, err
	}

	award, err := s.interactions.Award(ctx, locationID, uid, s.increment)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyInteracted) {
			log.Printf("[points] rid=%s stage=duplicate location=%s user=%s", logctx.RID(ctx), locationID, uid)
		}
		return nil, fromRepo(err)
	}
	log.Printf("[points] rid=%s stage=awarded location=%s user=%s owner=%s points=%d", logctx.RID(ctx), locationID, uid, award.OwnerUID, s.increment)

	if s.notify != nil && award.OwnerUID != "" {
		body := fmt.Sprintf("%s gave %d point(s) to %s", actor.Username, s.increment, loc.Name)
		s.notify.Notify(ctx, award.OwnerUID, model.NotificationPointsReceived, "You received points", body, &locationID, &uid)
	}
	return &AwardResult{
		LocationID:  locationID,
		OwnerUID:    award.OwnerUID,
		PointsGiven: award.Interaction.PointsGiven,
	}, nil
}

func (s *pointsService) HasInteracted(ctx context.Context, locationID, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	return s.interactions.Exists(ctx, locationID, uid)
}
