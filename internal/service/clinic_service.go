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
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
	"github.com/noah-isme/medlink-api/internal/validation"
)

var weekdays = map[string]struct{}{
	"monday":    {},
	"tuesday":   {},
	"wednesday": {},
	"thursday":  {},
	"friday":    {},
	"saturday":  {},
	"sunday":    {},
}

// ClinicService manages the clinic directory.
type ClinicService interface {
	Create(ctx context.Context, actor Actor, req dto.ClinicCreateRequest) (dto.ClinicResponse, error)
	Get(ctx context.Context, id uint) (dto.ClinicResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ClinicUpdateRequest) (dto.ClinicResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Search(ctx context.Context, req dto.ClinicSearchRequest) (dto.ClinicListResponse, error)
	ListByOrganization(ctx context.Context, organizationID uint, page, pageSize int) (dto.ClinicListResponse, error)
}

type clinicService struct {
	clinics   repository.ClinicRepository
	users     repository.UserRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewClinicService constructs the clinic directory service.
func NewClinicService(clinics repository.ClinicRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) ClinicService {
	return &clinicService{
		clinics:   clinics,
		users:     users,
		validator: validate,
		logger:    logger.With().Str("component", "clinic_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/clinic"),
	}
}

func (s *clinicService) Create(ctx context.Context, actor Actor, req dto.ClinicCreateRequest) (dto.ClinicResponse, error) {
	ctx, span := s.tracer.Start(ctx, "clinic.create")
	defer span.End()

	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return dto.ClinicResponse{}, validationError(err)
	}

	var ownerID uint
	switch actor.Role {
	case models.RoleOrganization:
		ownerID = actor.ID
	case models.RoleAdmin:
		if req.OrganizationID == nil {
			return dto.ClinicResponse{}, fieldError("organization_id is required when an admin creates a clinic")
		}
		ownerID = *req.OrganizationID
		if err := s.requireOrganization(ctx, ownerID); err != nil {
			return dto.ClinicResponse{}, err
		}
	default:
		return dto.ClinicResponse{}, ErrClinicForbidden
	}

	hours, err := normalizeWorkHours(req.WorkHours, req.Is24x7)
	if err != nil {
		return dto.ClinicResponse{}, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	clinic := models.Clinic{
		OrganizationID: ownerID,
		Name:           req.Name,
		Location:       req.Location,
		Address:        req.Address,
		IsActive:       isActive,
		WorkHours:      datatypes.NewJSONType(hours),
		Is24x7:         req.Is24x7,
	}
	if err := s.clinics.Create(ctx, &clinic); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clinic_create_failed")
		return dto.ClinicResponse{}, err
	}
	span.SetAttributes(attribute.Int64("clinic.id", int64(clinic.ID)))

	s.logger.Info().Uint("clinic_id", clinic.ID).Uint("organization_id", ownerID).Msg("clinic created")
	return dto.NewClinicResponse(clinic), nil
}

func (s *clinicService) Get(ctx context.Context, id uint) (dto.ClinicResponse, error) {
	clinic, err := s.load(ctx, id)
	if err != nil {
		return dto.ClinicResponse{}, err
	}
	return dto.NewClinicResponse(clinic), nil
}

// Update applies a sparse change. Concurrent writers are not detected; the last write wins.
func (s *clinicService) Update(ctx context.Context, actor Actor, id uint, req dto.ClinicUpdateRequest) (dto.ClinicResponse, error) {
	ctx, span := s.tracer.Start(ctx, "clinic.update")
	span.SetAttributes(attribute.Int64("clinic.id", int64(id)))
	defer span.End()

	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return dto.ClinicResponse{}, validationError(err)
	}

	clinic, err := s.load(ctx, id)
	if err != nil {
		return dto.ClinicResponse{}, err
	}
	if !mayManageClinic(actor, clinic) {
		return dto.ClinicResponse{}, ErrClinicForbidden
	}

	if req.Name != nil {
		clinic.Name = *req.Name
	}
	if req.Location != nil {
		clinic.Location = *req.Location
	}
	if req.Address != nil {
		clinic.Address = *req.Address
	}
	if req.IsActive != nil {
		clinic.IsActive = *req.IsActive
	}

	is24x7 := clinic.Is24x7
	if req.Is24x7 != nil {
		is24x7 = *req.Is24x7
	}
	switch {
	case req.WorkHours != nil:
		hours, err := normalizeWorkHours(req.WorkHours, is24x7)
		if err != nil {
			return dto.ClinicResponse{}, err
		}
		clinic.WorkHours = datatypes.NewJSONType(hours)
	case is24x7:
		clinic.WorkHours = datatypes.NewJSONType(models.WeeklyHours{})
	}
	clinic.Is24x7 = is24x7

	if err := s.clinics.Update(ctx, &clinic); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "clinic_update_failed")
		return dto.ClinicResponse{}, err
	}

	s.logger.Info().Uint("clinic_id", clinic.ID).Uint("actor_id", actor.ID).Msg("clinic updated")
	return dto.NewClinicResponse(clinic), nil
}

func (s *clinicService) Delete(ctx context.Context, actor Actor, id uint) error {
	clinic, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !mayManageClinic(actor, clinic) {
		return ErrClinicForbidden
	}
	if err := s.clinics.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClinicNotFound
		}
		return err
	}

	s.logger.Info().Uint("clinic_id", id).Uint("actor_id", actor.ID).Msg("clinic deleted")
	return nil
}

func (s *clinicService) Search(ctx context.Context, req dto.ClinicSearchRequest) (dto.ClinicListResponse, error) {
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validator.Struct(req); err != nil {
		return dto.ClinicListResponse{}, validationError(err)
	}
	return s.list(ctx, repository.ClinicFilter{Location: req.Location, Page: req.Page, PageSize: req.PageSize})
}

func (s *clinicService) ListByOrganization(ctx context.Context, organizationID uint, page, pageSize int) (dto.ClinicListResponse, error) {
	return s.list(ctx, repository.ClinicFilter{OrganizationID: organizationID, Page: page, PageSize: pageSize})
}

func (s *clinicService) list(ctx context.Context, filter repository.ClinicFilter) (dto.ClinicListResponse, error) {
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)
	clinics, total, err := s.clinics.List(ctx, filter)
	if err != nil {
		return dto.ClinicListResponse{}, err
	}
	return dto.ClinicListResponse{
		Items:      dto.NewClinicResponseSlice(clinics),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *clinicService) load(ctx context.Context, id uint) (models.Clinic, error) {
	clinic, err := s.clinics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Clinic{}, ErrClinicNotFound
		}
		return models.Clinic{}, err
	}
	return clinic, nil
}

func (s *clinicService) requireOrganization(ctx context.Context, id uint) error {
	owner, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if owner.Role != models.RoleOrganization {
		return fieldError("organization_id must reference an organization")
	}
	return nil
}

func mayManageClinic(actor Actor, clinic models.Clinic) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RoleOrganization && clinic.OrganizationID == actor.ID
}

// normalizeWorkHours checks the weekly schedule. A 24/7 clinic carries no per-day hours.
func normalizeWorkHours(payload map[string]dto.DayHoursPayload, is24x7 bool) (models.WeeklyHours, error) {
	if is24x7 {
		if len(payload) > 0 {
			return nil, fieldError("work_hours must be empty for a clinic open 24/7")
		}
		return models.WeeklyHours{}, nil
	}

	hours := make(models.WeeklyHours, len(payload))
	for rawDay, day := range payload {
		name := strings.ToLower(strings.TrimSpace(rawDay))
		if _, ok := weekdays[name]; !ok {
			return nil, fieldError("work_hours: unknown day %q", rawDay)
		}
		if _, dup := hours[name]; dup {
			return nil, fieldError("work_hours: day %q given twice", name)
		}

		open, err := validation.ParseClock(day.Open)
		if err != nil {
			return nil, fieldError("work_hours.%s.open: %v", name, err)
		}
		closing, err := validation.ParseClock(day.Close)
		if err != nil {
			return nil, fieldError("work_hours.%s.close: %v", name, err)
		}
		if closing <= open {
			return nil, fieldError("work_hours.%s: close must be after open", name)
		}

		entry := models.DayHours{Open: strings.TrimSpace(day.Open), Close: strings.TrimSpace(day.Close)}
		if (day.BreakStart == nil) != (day.BreakEnd == nil) {
			return nil, fieldError("work_hours.%s: break_start and break_end go together", name)
		}
		if day.BreakStart != nil {
			start, err := validation.ParseClock(*day.BreakStart)
			if err != nil {
				return nil, fieldError("work_hours.%s.break_start: %v", name, err)
			}
			end, err := validation.ParseClock(*day.BreakEnd)
			if err != nil {
				return nil, fieldError("work_hours.%s.break_end: %v", name, err)
			}
			if end <= start {
				return nil, fieldError("work_hours.%s: break_end must be after break_start", name)
			}
			if start < open || end > closing {
				return nil, fieldError("work_hours.%s: break must fall inside opening hours", name)
			}
			breakStart := strings.TrimSpace(*day.BreakStart)
			breakEnd := strings.TrimSpace(*day.BreakEnd)
			entry.BreakStart = &breakStart
			entry.BreakEnd = &breakEnd
		}
		hours[name] = entry
	}
	return hours, nil
}
