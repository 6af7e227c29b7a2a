package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// SettingsService applies sparse updates to the caller's own account.
type SettingsService interface {
	Update(ctx context.Context, token string, payload dto.SettingsRequest) (dto.ProfileResponse, error)
}

type settingsService struct {
	users     repository.UserRepository
	tokens    TokenManager
	passwords PasswordManager
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSettingsService builds the settings use case.
func NewSettingsService(users repository.UserRepository, tokens TokenManager, passwords PasswordManager, validate *validator.Validate, logger zerolog.Logger) SettingsService {
	return &settingsService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validator: validate,
		logger:    logger.With().Str("component", "settings_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/settings"),
	}
}

// Update decodes the bearer token first; an expired or malformed token is rejected
// before the payload is looked at.
func (s *settingsService) Update(ctx context.Context, token string, payload dto.SettingsRequest) (dto.ProfileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "settings.update")
	defer span.End()

	claims, err := s.tokens.Decode(strings.TrimSpace(token))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token_rejected")
		return dto.ProfileResponse{}, ErrInvalidToken
	}
	span.SetAttributes(attribute.Int64("user.id", int64(claims.UserID)))

	payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileResponse{}, validationError(err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrUserNotFound
		}
		return dto.ProfileResponse{}, err
	}

	if payload.AdminRole != nil || payload.IsSuperadmin != nil {
		if user.Role != models.RoleAdmin || user.Admin == nil || user.Admin.AdminRole != models.AdminRoleAdministrator {
			span.SetStatus(codes.Error, "privilege_denied")
			return dto.ProfileResponse{}, ErrAdministratorRequired
		}
		if payload.AdminRole != nil {
			user.Admin.AdminRole = models.AdminRole(*payload.AdminRole)
		}
		if payload.IsSuperadmin != nil {
			user.Admin.IsSuperadmin = *payload.IsSuperadmin
		}
	}

	if err := s.applyAccountFields(ctx, &user, payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	policy, ok := policyFor(user.Role)
	if !ok {
		return dto.ProfileResponse{}, fieldError("unknown role %q", user.Role)
	}
	if err := policy.settings(&user, payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	if err := s.users.Update(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ProfileResponse{}, s.duplicateCause(ctx, user)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update_failed")
		return dto.ProfileResponse{}, err
	}

	var clinicIDs []uint
	if user.Role == models.RoleOrganization {
		if clinicIDs, err = s.users.ClinicIDs(ctx, user.ID); err != nil {
			return dto.ProfileResponse{}, err
		}
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("settings updated")
	return dto.NewProfileResponse(user, clinicIDs), nil
}

// duplicateCause tells which unique column a concurrent writer claimed first.
func (s *settingsService) duplicateCause(ctx context.Context, user models.User) error {
	if taken, err := s.users.EmailTaken(ctx, user.Email, user.ID); err == nil && taken {
		return ErrEmailTaken
	}
	return ErrNicknameTaken
}

func (s *settingsService) applyAccountFields(ctx context.Context, user *models.User, payload dto.SettingsRequest) error {
	if payload.Nickname != nil {
		nickname := *payload.Nickname
		if nickname != user.Nickname {
			taken, err := s.users.NicknameTaken(ctx, nickname, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrNicknameTaken
			}
			user.Nickname = nickname
		}
	}
	if payload.Email != nil {
		email := *payload.Email
		if email != user.Email {
			taken, err := s.users.EmailTaken(ctx, email, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return ErrEmailTaken
			}
			user.Email = email
		}
	}
	if payload.Name != nil {
		user.Name = *payload.Name
	}
	if payload.Country != nil {
		user.Country = *payload.Country
	}
	if payload.PhoneNumber != nil {
		user.PhoneNumber = *payload.PhoneNumber
	}
	if payload.PhotoPath != nil {
		user.PhotoPath = payload.PhotoPath
	}
	if payload.Password != nil {
		digest, err := s.passwords.Hash(*payload.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = digest
	}
	return nil
}
