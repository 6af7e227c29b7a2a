package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// AdminService exposes moderation and reporting for admin accounts.
type AdminService interface {
	Me(ctx context.Context, actor Actor) (dto.ProfileResponse, error)
	ListUsers(ctx context.Context, actor Actor, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error)
	Block(ctx context.Context, actor Actor, userID uint, req dto.BlockUserRequest) (dto.AdminUserResponse, error)
	Unblock(ctx context.Context, actor Actor, userID uint) (dto.AdminUserResponse, error)
	DeleteUser(ctx context.Context, actor Actor, userID uint) error
	UpdatePrivileges(ctx context.Context, actor Actor, userID uint, req dto.AdminPrivilegesRequest) (dto.ProfileResponse, error)
	Statistics(ctx context.Context, actor Actor) (dto.StatisticsResponse, error)
}

type adminService struct {
	users     repository.UserRepository
	admins    repository.AdminRepository
	events    events.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAdminService constructs the admin use cases.
func NewAdminService(users repository.UserRepository, admins repository.AdminRepository, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) AdminService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &adminService{
		users:     users,
		admins:    admins,
		events:    publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "admin_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/admin"),
		now:       time.Now,
	}
}

func (s *adminService) Me(ctx context.Context, actor Actor) (dto.ProfileResponse, error) {
	user, err := s.loadAdmin(ctx, actor.ID)
	if err != nil {
		return dto.ProfileResponse{}, err
	}
	return dto.NewProfileResponse(user, nil), nil
}

func (s *adminService) ListUsers(ctx context.Context, actor Actor, req dto.AdminUserListRequest) (dto.AdminUserListResponse, error) {
	if _, err := s.loadAdmin(ctx, actor.ID); err != nil {
		return dto.AdminUserListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminUserListResponse{}, validationError(err)
	}

	page, size := dto.NormalizePage(req.Page, req.PageSize)
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:     models.Role(req.Role),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		return dto.AdminUserListResponse{}, err
	}

	return dto.AdminUserListResponse{
		Items:      dto.NewAdminUserResponseSlice(users),
		Pagination: dto.NewPaginationMeta(page, size, total),
	}, nil
}

func (s *adminService) Block(ctx context.Context, actor Actor, userID uint, req dto.BlockUserRequest) (dto.AdminUserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "admin.block")
	span.SetAttributes(attribute.Int64("target.id", int64(userID)))
	defer span.End()

	target, err := s.moderationTarget(ctx, actor, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "block_denied")
		return dto.AdminUserResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminUserResponse{}, validationError(err)
	}
	if target.IsBlocked() {
		return dto.AdminUserResponse{}, ErrAlreadyBlocked
	}

	reason := strings.TrimSpace(s.sanitizer.Sanitize(req.Reason))
	if reason == "" {
		return dto.AdminUserResponse{}, fieldError("reason must contain text")
	}

	marker := &models.BlockedUser{
		UserID:    target.ID,
		Reason:    reason,
		BlockedAt: s.now().UTC(),
	}
	if err := s.admins.Block(ctx, marker); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AdminUserResponse{}, ErrAlreadyBlocked
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "block_failed")
		return dto.AdminUserResponse{}, err
	}
	target.Blocked = marker

	s.logger.Info().Uint("admin_id", actor.ID).Uint("user_id", target.ID).Msg("user blocked")
	s.publish(ctx, events.TypeUserBlocked, map[string]interface{}{
		"user_id":  target.ID,
		"admin_id": actor.ID,
		"reason":   reason,
	})

	return dto.NewAdminUserResponse(target), nil
}

func (s *adminService) Unblock(ctx context.Context, actor Actor, userID uint) (dto.AdminUserResponse, error) {
	target, err := s.moderationTarget(ctx, actor, userID)
	if err != nil {
		return dto.AdminUserResponse{}, err
	}
	if err := s.admins.Unblock(ctx, target.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminUserResponse{}, ErrNotBlocked
		}
		return dto.AdminUserResponse{}, err
	}
	target.Blocked = nil

	s.logger.Info().Uint("admin_id", actor.ID).Uint("user_id", target.ID).Msg("user unblocked")
	return dto.NewAdminUserResponse(target), nil
}

// DeleteUser removes an account with its satellite rows. Administrators only.
func (s *adminService) DeleteUser(ctx context.Context, actor Actor, userID uint) error {
	if _, err := loadAdministrator(ctx, s.users, actor.ID); err != nil {
		return err
	}
	if actor.ID == userID {
		return ErrSelfModeration
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Warn().Uint("admin_id", actor.ID).Uint("user_id", userID).Msg("user deleted")
	return nil
}

func (s *adminService) UpdatePrivileges(ctx context.Context, actor Actor, userID uint, req dto.AdminPrivilegesRequest) (dto.ProfileResponse, error) {
	if _, err := loadAdministrator(ctx, s.users, actor.ID); err != nil {
		return dto.ProfileResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ProfileResponse{}, validationError(err)
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrUserNotFound
		}
		return dto.ProfileResponse{}, err
	}
	if target.Role != models.RoleAdmin || target.Admin == nil {
		return dto.ProfileResponse{}, ErrNotAnAdmin
	}

	if req.AdminRole != nil {
		target.Admin.AdminRole = models.AdminRole(*req.AdminRole)
	}
	if req.IsSuperadmin != nil {
		target.Admin.IsSuperadmin = *req.IsSuperadmin
	}
	if err := s.admins.UpdatePrivileges(ctx, target.Admin); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrNotAnAdmin
		}
		return dto.ProfileResponse{}, err
	}

	s.logger.Info().
		Uint("admin_id", actor.ID).
		Uint("user_id", target.ID).
		Str("admin_role", string(target.Admin.AdminRole)).
		Bool("is_superadmin", target.Admin.IsSuperadmin).
		Msg("admin privileges changed")
	return dto.NewProfileResponse(target, nil), nil
}

func (s *adminService) Statistics(ctx context.Context, actor Actor) (dto.StatisticsResponse, error) {
	if _, err := s.loadAdmin(ctx, actor.ID); err != nil {
		return dto.StatisticsResponse{}, err
	}

	stats, err := s.admins.Statistics(ctx)
	if err != nil {
		return dto.StatisticsResponse{}, err
	}

	var total int64
	for _, count := range stats.UsersByRole {
		total += count
	}

	return dto.StatisticsResponse{
		TotalUsers:        total,
		UsersByRole:       stats.UsersByRole,
		BlockedUsers:      stats.BlockedUsers,
		Clinics:           stats.Clinics,
		OrdersByStatus:    stats.OrdersByStatus,
		ResponsesByStatus: stats.ResponsesByStatus,
		Reviews:           stats.Reviews,
		GeneratedAt:       s.now().UTC(),
	}, nil
}

func (s *adminService) loadAdmin(ctx context.Context, id uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrPermissionDenied
		}
		return models.User{}, err
	}
	if user.Role != models.RoleAdmin || user.Admin == nil {
		return models.User{}, kindError(ErrPermissionDenied, "admin account required")
	}
	return user, nil
}

// moderationTarget checks that the caller moderates and returns the target account.
func (s *adminService) moderationTarget(ctx context.Context, actor Actor, userID uint) (models.User, error) {
	caller, err := s.loadAdmin(ctx, actor.ID)
	if err != nil {
		return models.User{}, err
	}
	switch caller.Admin.AdminRole {
	case models.AdminRoleModerator, models.AdminRoleAdministrator:
	default:
		return models.User{}, ErrModeratorRequired
	}
	if caller.ID == userID {
		return models.User{}, ErrSelfModeration
	}

	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return target, nil
}

func (s *adminService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
