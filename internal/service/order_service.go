package service

import (
	"context"
	"errors"
	"strings"

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
	"github.com/noah-isme/medlink-api/internal/observability"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// OrderService drives the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, actor Actor, req dto.OrderCreateRequest) (dto.OrderResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.OrderResponse, error)
	ListOwn(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error)
	Feed(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error)
	Assigned(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uint, req dto.OrderStatusRequest) (dto.OrderResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type orderService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	clinics   repository.ClinicRepository
	events    events.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewOrderService constructs the order use cases.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, clinics repository.ClinicRepository, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &orderService{
		orders:    orders,
		users:     users,
		clinics:   clinics,
		events:    publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "order_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/order"),
	}
}

func (s *orderService) Create(ctx context.Context, actor Actor, req dto.OrderCreateRequest) (dto.OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.create")
	span.SetAttributes(attribute.String("creator.role", string(actor.Role)))
	defer span.End()

	policy, ok := policyFor(actor.Role)
	if !ok || !policy.createsOrders {
		span.SetStatus(codes.Error, "creator_role_denied")
		return dto.OrderResponse{}, ErrOrderCreatorRole
	}

	req.ServiceType = strings.TrimSpace(req.ServiceType)
	req.Description = strings.TrimSpace(s.sanitizer.Sanitize(req.Description))
	if err := s.validator.Struct(req); err != nil {
		return dto.OrderResponse{}, validationError(err)
	}

	if err := s.checkReferences(ctx, req); err != nil {
		return dto.OrderResponse{}, err
	}

	specs := cleanList(req.Specifications)
	if len(specs) == 0 {
		specs = []string{req.ServiceType}
	}

	order := models.Order{
		CreatorID:      actor.ID,
		CreatorRole:    actor.Role,
		ServiceType:    req.ServiceType,
		Description:    req.Description,
		Specifications: specs,
		PreferredDate:  req.PreferredDate.UTC(),
		Status:         models.OrderStatusActive,
		PatientID:      req.PatientID,
		SpecialistID:   req.SpecialistID,
		ClinicID:       req.ClinicID,
	}
	if err := s.orders.Create(ctx, &order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order_create_failed")
		return dto.OrderResponse{}, err
	}
	span.SetAttributes(attribute.Int64("order.id", int64(order.ID)))

	observability.OrdersCreated().WithLabelValues(string(actor.Role)).Inc()
	s.logger.Info().Uint("order_id", order.ID).Uint("creator_id", actor.ID).Msg("order created")
	s.publish(ctx, events.TypeOrderCreated, map[string]interface{}{
		"order_id":     order.ID,
		"creator_id":   order.CreatorID,
		"service_type": order.ServiceType,
	})

	return dto.NewOrderResponse(order), nil
}

// Get returns the order to its creator, and to everyone else only while it is active.
func (s *orderService) Get(ctx context.Context, actor Actor, id uint) (dto.OrderResponse, error) {
	order, err := s.visible(ctx, actor, id)
	if err != nil {
		return dto.OrderResponse{}, err
	}
	return dto.NewOrderResponse(order), nil
}

func (s *orderService) ListOwn(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.OrderListResponse{}, validationError(err)
	}
	return s.list(ctx, repository.OrderFilter{
		CreatorID:     actor.ID,
		Status:        models.OrderStatus(req.Status),
		ServiceType:   req.ServiceType,
		Specification: req.Specification,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
}

// Feed lists orders open for bids. Only active orders are visible to non-creators, so the
// status filter is pinned.
func (s *orderService) Feed(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.OrderListResponse{}, validationError(err)
	}
	if req.Status != "" && models.OrderStatus(req.Status) != models.OrderStatusActive {
		page, size := dto.NormalizePage(req.Page, req.PageSize)
		return dto.OrderListResponse{
			Items:      []dto.OrderResponse{},
			Pagination: dto.NewPaginationMeta(page, size, 0),
		}, nil
	}
	return s.list(ctx, repository.OrderFilter{
		Status:        models.OrderStatusActive,
		ServiceType:   req.ServiceType,
		Specification: req.Specification,
		Page:          req.Page,
		PageSize:      req.PageSize,
	})
}

func (s *orderService) Assigned(ctx context.Context, actor Actor, req dto.OrderListRequest) (dto.OrderListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.OrderListResponse{}, validationError(err)
	}

	assigned := &repository.AssignedFilter{}
	switch actor.Role {
	case models.RolePatient:
		assigned.PatientID = actor.ID
	case models.RoleSpecialist:
		assigned.SpecialistID = actor.ID
	case models.RoleOrganization:
		clinicIDs, err := s.users.ClinicIDs(ctx, actor.ID)
		if err != nil {
			return dto.OrderListResponse{}, err
		}
		assigned.ClinicIDs = clinicIDs
	}

	return s.list(ctx, repository.OrderFilter{
		Status:     models.OrderStatus(req.Status),
		AssignedTo: assigned,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

func (s *orderService) UpdateStatus(ctx context.Context, actor Actor, id uint, req dto.OrderStatusRequest) (dto.OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.update_status")
	span.SetAttributes(attribute.Int64("order.id", int64(id)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.OrderResponse{}, validationError(err)
	}

	order, err := s.visible(ctx, actor, id)
	if err != nil {
		return dto.OrderResponse{}, err
	}
	if order.CreatorID != actor.ID {
		return dto.OrderResponse{}, ErrOrderForbidden
	}

	next := models.OrderStatus(req.Status)
	if next == order.Status {
		return dto.NewOrderResponse(order), nil
	}
	if !creatorTransitionAllowed(order.Status, next) {
		span.SetStatus(codes.Error, "transition_rejected")
		return dto.OrderResponse{}, ErrOrderStatusTransition
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, next); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.OrderResponse{}, ErrOrderNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order_status_failed")
		return dto.OrderResponse{}, err
	}
	previous := order.Status
	order.Status = next

	s.logger.Info().
		Uint("order_id", order.ID).
		Str("from", string(previous)).
		Str("to", string(next)).
		Msg("order status changed")
	s.publish(ctx, events.TypeOrderStatusChanged, map[string]interface{}{
		"order_id": order.ID,
		"from":     previous,
		"to":       next,
	})

	return dto.NewOrderResponse(order), nil
}

func (s *orderService) Delete(ctx context.Context, actor Actor, id uint) error {
	order, err := s.visible(ctx, actor, id)
	if err != nil {
		return err
	}
	if order.CreatorID != actor.ID {
		return ErrOrderForbidden
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	s.logger.Info().Uint("order_id", order.ID).Msg("order deleted")
	return nil
}

func (s *orderService) visible(ctx context.Context, actor Actor, id uint) (models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	if order.CreatorID != actor.ID && order.Status != models.OrderStatusActive {
		return models.Order{}, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) list(ctx context.Context, filter repository.OrderFilter) (dto.OrderListResponse, error) {
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return dto.OrderListResponse{}, err
	}
	return dto.OrderListResponse{
		Items:      dto.NewOrderResponseSlice(orders),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *orderService) checkReferences(ctx context.Context, req dto.OrderCreateRequest) error {
	if req.PatientID != nil {
		if err := s.requireRole(ctx, *req.PatientID, models.RolePatient); err != nil {
			return err
		}
	}
	if req.SpecialistID != nil {
		if err := s.requireRole(ctx, *req.SpecialistID, models.RoleSpecialist); err != nil {
			return err
		}
	}
	if req.ClinicID != nil {
		if _, err := s.clinics.GetByID(ctx, *req.ClinicID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderReferenceNotFound
			}
			return err
		}
	}
	return nil
}

func (s *orderService) requireRole(ctx context.Context, id uint, role models.Role) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderReferenceNotFound
		}
		return err
	}
	if user.Role != role {
		return ErrOrderReferenceNotFound
	}
	return nil
}

func (s *orderService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

// creatorTransitionAllowed encodes the moves a creator may make by hand. Completion only
// happens through accepting a response; completed and cancelled are terminal.
func creatorTransitionAllowed(from, to models.OrderStatus) bool {
	switch from {
	case models.OrderStatusActive:
		return to == models.OrderStatusInactive || to == models.OrderStatusCancelled
	case models.OrderStatusInactive:
		return to == models.OrderStatusActive || to == models.OrderStatusCancelled
	default:
		return false
	}
}
