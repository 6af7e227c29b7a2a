package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/auth"
	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/observability"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   uint
	Role models.Role
}

// TokenManager issues and decodes access tokens.
type TokenManager interface {
	Issue(userID uint, role string) (string, time.Time, error)
	Decode(token string) (auth.Claims, error)
}

// PasswordManager hashes and verifies passwords.
type PasswordManager interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// AuthService registers accounts and logs them in.
type AuthService interface {
	Register(ctx context.Context, payload dto.RegisterRequest, caller *Actor) (dto.ProfileResponse, error)
	Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    TokenManager
	passwords PasswordManager
	events    events.Publisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAuthService builds the registration and login use cases.
func NewAuthService(users repository.UserRepository, tokens TokenManager, passwords PasswordManager, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) AuthService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &authService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		events:    publisher,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/auth"),
	}
}

func (s *authService) Register(ctx context.Context, payload dto.RegisterRequest, caller *Actor) (dto.ProfileResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	span.SetAttributes(attribute.String("user.role", payload.Role))
	defer span.End()

	profile, err := s.register(ctx, payload, caller)
	if err != nil {
		observability.AuthAttempts().WithLabelValues("register", "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "register_failed")
		return dto.ProfileResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("register", "success").Inc()
	return profile, nil
}

func (s *authService) register(ctx context.Context, payload dto.RegisterRequest, caller *Actor) (dto.ProfileResponse, error) {
	payload.Normalize()
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProfileResponse{}, validationError(err)
	}

	role := models.Role(payload.Role)
	policy, ok := policyFor(role)
	if !ok {
		return dto.ProfileResponse{}, fieldError("unknown role %q", payload.Role)
	}

	user := models.User{
		Nickname:    payload.Nickname,
		Name:        payload.Name,
		Role:        role,
		Country:     payload.Country,
		Email:       payload.Email,
		PhoneNumber: payload.PhoneNumber,
		PhotoPath:   payload.PhotoPath,
	}
	if err := policy.register(&user, payload); err != nil {
		return dto.ProfileResponse{}, err
	}

	if role == models.RoleAdmin {
		if err := s.requireAdministrator(ctx, caller); err != nil {
			return dto.ProfileResponse{}, err
		}
	}

	if taken, err := s.users.NicknameTaken(ctx, user.Nickname, 0); err != nil {
		return dto.ProfileResponse{}, err
	} else if taken {
		return dto.ProfileResponse{}, ErrNicknameTaken
	}
	if taken, err := s.users.EmailTaken(ctx, user.Email, 0); err != nil {
		return dto.ProfileResponse{}, err
	} else if taken {
		return dto.ProfileResponse{}, ErrEmailTaken
	}

	digest, err := s.passwords.Hash(payload.Password)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	user.PasswordHash = digest

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if taken, _ := s.users.EmailTaken(ctx, user.Email, 0); taken {
				return dto.ProfileResponse{}, ErrEmailTaken
			}
			return dto.ProfileResponse{}, ErrNicknameTaken
		}
		return dto.ProfileResponse{}, err
	}

	s.logger.Info().
		Uint("user_id", user.ID).
		Str("role", string(user.Role)).
		Str("email", maskEmail(user.Email)).
		Str("phone", maskPhone(user.PhoneNumber)).
		Msg("user registered")
	s.publish(ctx, events.TypeUserRegistered, map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return dto.NewProfileResponse(user, nil), nil
}

func (s *authService) Login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	ctx, span := s.tracer.Start(ctx, "auth.login")
	defer span.End()

	resp, err := s.login(ctx, payload)
	if err != nil {
		observability.AuthAttempts().WithLabelValues("login", "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "login_failed")
		return dto.AuthResponse{}, err
	}

	observability.AuthAttempts().WithLabelValues("login", "success").Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(resp.Profile.ID)))
	return resp, nil
}

func (s *authService) login(ctx context.Context, payload dto.LoginRequest) (dto.AuthResponse, error) {
	payload.Nickname = strings.TrimSpace(payload.Nickname)
	if err := s.validator.Struct(payload); err != nil {
		return dto.AuthResponse{}, validationError(err)
	}

	user, err := s.users.GetByNickname(ctx, payload.Nickname)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AuthResponse{}, ErrInvalidCredentials
		}
		return dto.AuthResponse{}, err
	}

	if !s.passwords.Verify(payload.Password, user.PasswordHash) {
		return dto.AuthResponse{}, ErrInvalidCredentials
	}
	if user.IsBlocked() {
		s.logger.Warn().Uint("user_id", user.ID).Str("email", maskEmail(user.Email)).Msg("blocked account attempted login")
		return dto.AuthResponse{}, ErrAccountBlocked
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return dto.AuthResponse{}, err
	}

	var clinicIDs []uint
	if user.Role == models.RoleOrganization {
		if clinicIDs, err = s.users.ClinicIDs(ctx, user.ID); err != nil {
			return dto.AuthResponse{}, err
		}
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("user logged in")

	return dto.AuthResponse{
		Profile:     dto.NewProfileResponse(user, clinicIDs),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
	}, nil
}

// requireAdministrator checks that the caller is an admin whose sub-role is administrator.
func (s *authService) requireAdministrator(ctx context.Context, caller *Actor) error {
	if caller == nil || caller.ID == 0 {
		return ErrAdministratorRequired
	}
	_, err := loadAdministrator(ctx, s.users, caller.ID)
	return err
}

func (s *authService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

// loadAdministrator returns the caller when it is an admin with the administrator sub-role.
func loadAdministrator(ctx context.Context, users repository.UserRepository, id uint) (models.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrAdministratorRequired
		}
		return models.User{}, err
	}
	if user.Role != models.RoleAdmin || user.Admin == nil || user.Admin.AdminRole != models.AdminRoleAdministrator {
		return models.User{}, ErrAdministratorRequired
	}
	return user, nil
}
