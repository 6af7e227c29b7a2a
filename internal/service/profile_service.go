package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// ProfileService serves read-only account views.
type ProfileService interface {
	Me(ctx context.Context, actor Actor) (dto.ProfileResponse, error)
	Public(ctx context.Context, id uint) (dto.PublicProfileResponse, error)
	ByRole(ctx context.Context, id uint, role models.Role) (dto.PublicProfileResponse, error)
}

type profileService struct {
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewProfileService builds the profile reader.
func NewProfileService(users repository.UserRepository, logger zerolog.Logger) ProfileService {
	return &profileService{
		users:  users,
		logger: logger.With().Str("component", "profile_service").Logger(),
	}
}

func (s *profileService) Me(ctx context.Context, actor Actor) (dto.ProfileResponse, error) {
	user, clinicIDs, err := s.load(ctx, actor.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(user, clinicIDs), nil
}

func (s *profileService) Public(ctx context.Context, id uint) (dto.PublicProfileResponse, error) {
	user, clinicIDs, err := s.load(ctx, id)
	if err != nil {
		return dto.PublicProfileResponse{}, err
	}
	return dto.NewPublicProfileResponse(user, clinicIDs), nil
}

// ByRole returns the profile only when the account has the requested role.
func (s *profileService) ByRole(ctx context.Context, id uint, role models.Role) (dto.PublicProfileResponse, error) {
	user, clinicIDs, err := s.load(ctx, id)
	if err != nil {
		return dto.PublicProfileResponse{}, err
	}
	if user.Role != role {
		return dto.PublicProfileResponse{}, ErrRoleMismatch
	}
	return dto.NewPublicProfileResponse(user, clinicIDs), nil
}

func (s *profileService) load(ctx context.Context, id uint) (models.User, []uint, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, nil, ErrUserNotFound
		}
		return models.User{}, nil, err
	}

	var clinicIDs []uint
	if user.Role == models.RoleOrganization {
		clinicIDs, err = s.users.ClinicIDs(ctx, user.ID)
		if err != nil {
			return models.User{}, nil, err
		}
	}
	return user, clinicIDs, nil
}
