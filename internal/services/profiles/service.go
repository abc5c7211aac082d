package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andkapach/amora/internal/domain/enums"
	"github.com/andkapach/amora/internal/domain/profile"
	pgrepo "github.com/andkapach/amora/internal/repo/postgres"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

type Store interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
	UpdateFields(ctx context.Context, id string, upd pgrepo.ProfileUpdate) (profile.Profile, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

type BlockStore interface {
	Block(ctx context.Context, actorID, targetID string) error
	Unblock(ctx context.Context, actorID, targetID string) error
}

type Service struct {
	store  Store
	blocks BlockStore
	now    func() time.Time
}

func NewService(store Store, blocks BlockStore) *Service {
	return &Service{
		store:  store,
		blocks: blocks,
		now:    time.Now,
	}
}

type Update struct {
	DisplayName  *string
	Age          *int
	Gender       *string
	InterestedIn *string
	Country      *string
	City         *string
	Religion     *string
	Education    *string
	IsPaused     *bool
	Photos       []string
}

func (s *Service) Get(ctx context.Context, userID string) (profile.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.Profile{}, ErrValidation
	}
	if s.store == nil {
		return profile.Profile{}, fmt.Errorf("profile store is nil")
	}

	p, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return profile.Profile{}, ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	return p, nil
}

func (s *Service) Update(ctx context.Context, userID string, upd Update) (profile.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return profile.Profile{}, ErrValidation
	}
	if s.store == nil {
		return profile.Profile{}, fmt.Errorf("profile store is nil")
	}
	if err := validateUpdate(&upd); err != nil {
		return profile.Profile{}, err
	}

	p, err := s.store.UpdateFields(ctx, userID, pgrepo.ProfileUpdate{
		DisplayName:  upd.DisplayName,
		Age:          upd.Age,
		Gender:       upd.Gender,
		InterestedIn: upd.InterestedIn,
		Country:      upd.Country,
		City:         upd.City,
		Religion:     upd.Religion,
		Education:    upd.Education,
		IsPaused:     upd.IsPaused,
		Photos:       upd.Photos,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrProfileNotFound) {
			return profile.Profile{}, ErrNotFound
		}
		return profile.Profile{}, fmt.Errorf("update profile: %w", err)
	}

	return p, nil
}

func (s *Service) TouchActivity(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrValidation
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.TouchLastActive(ctx, userID, s.now().UTC()); err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

func (s *Service) Block(ctx context.Context, actorID, targetID string) error {
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" || actorID == targetID {
		return ErrValidation
	}
	if s.blocks == nil {
		return fmt.Errorf("block store is nil")
	}
	if err := s.blocks.Block(ctx, actorID, targetID); err != nil {
		return fmt.Errorf("block profile: %w", err)
	}
	return nil
}

func (s *Service) Unblock(ctx context.Context, actorID, targetID string) error {
	if strings.TrimSpace(actorID) == "" || strings.TrimSpace(targetID) == "" || actorID == targetID {
		return ErrValidation
	}
	if s.blocks == nil {
		return fmt.Errorf("block store is nil")
	}
	if err := s.blocks.Unblock(ctx, actorID, targetID); err != nil {
		return fmt.Errorf("unblock profile: %w", err)
	}
	return nil
}

func validateUpdate(upd *Update) error {
	if upd.DisplayName != nil {
		trimmed := strings.TrimSpace(*upd.DisplayName)
		if trimmed == "" || len(trimmed) > 64 {
			return fmt.Errorf("display name length: %w", ErrValidation)
		}
		upd.DisplayName = &trimmed
	}
	if upd.Age != nil && (*upd.Age < profile.MinAge || *upd.Age > profile.MaxAge) {
		return fmt.Errorf("age out of range: %w", ErrValidation)
	}
	if upd.Gender != nil {
		if !enums.ValidGender(*upd.Gender) {
			return fmt.Errorf("unknown gender: %w", ErrValidation)
		}
		lowered := strings.ToLower(strings.TrimSpace(*upd.Gender))
		upd.Gender = &lowered
	}
	if upd.InterestedIn != nil {
		if !enums.ValidInterest(*upd.InterestedIn) {
			return fmt.Errorf("unknown interest: %w", ErrValidation)
		}
		lowered := strings.ToLower(strings.TrimSpace(*upd.InterestedIn))
		upd.InterestedIn = &lowered
	}
	if upd.Photos != nil && len(upd.Photos) != profile.PhotoSlots {
		return fmt.Errorf("photo list must have %d slots: %w", profile.PhotoSlots, ErrValidation)
	}
	return nil
}
