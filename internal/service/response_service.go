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

// ResponseService implements the bid workflow on orders.
type ResponseService interface {
	Create(ctx context.Context, actor Actor, orderID uint, req dto.ResponseCreateRequest) (dto.BidResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.BidResponse, error)
	ListForOrder(ctx context.Context, actor Actor, orderID uint, req dto.ResponseListRequest) (dto.BidListResponse, error)
	ListMine(ctx context.Context, actor Actor, req dto.ResponseListRequest) (dto.BidListResponse, error)
	Accept(ctx context.Context, actor Actor, id uint) (dto.AcceptResponse, error)
	Deny(ctx context.Context, actor Actor, id uint) (dto.BidResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type responseService struct {
	responses repository.ResponseRepository
	orders    repository.OrderRepository
	events    events.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewResponseService constructs the bid workflow.
func NewResponseService(responses repository.ResponseRepository, orders repository.OrderRepository, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) ResponseService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &responseService{
		responses: responses,
		orders:    orders,
		events:    publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "response_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/response"),
	}
}

// Create submits a bid. The storage layer rejects a second bid for the same
// (order, responder) pair, which keeps concurrent submissions from both landing.
func (s *responseService) Create(ctx context.Context, actor Actor, orderID uint, req dto.ResponseCreateRequest) (dto.BidResponse, error) {
	ctx, span := s.tracer.Start(ctx, "response.create")
	span.SetAttributes(attribute.Int64("order.id", int64(orderID)))
	defer span.End()

	req.Text = strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if err := s.validator.Struct(req); err != nil {
		return dto.BidResponse{}, validationError(err)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return dto.BidResponse{}, err
	}
	if order.CreatorID == actor.ID {
		return dto.BidResponse{}, ErrResponseOwnOrder
	}
	if order.Status != models.OrderStatusActive {
		return dto.BidResponse{}, ErrOrderNotActive
	}

	response := models.Response{
		OrderID:       order.ID,
		ResponderID:   actor.ID,
		ResponderRole: actor.Role,
		Text:          req.Text,
		Status:        models.ResponseStatusProposed,
	}
	if err := s.responses.Create(ctx, &response); err != nil {
		switch {
		case errors.Is(err, gorm.ErrDuplicatedKey):
			observability.Responses().WithLabelValues("duplicate").Inc()
			return dto.BidResponse{}, ErrResponseDuplicate
		case errors.Is(err, repository.ErrStaleState):
			return dto.BidResponse{}, ErrOrderNotActive
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "response_create_failed")
		return dto.BidResponse{}, err
	}

	observability.Responses().WithLabelValues("created").Inc()
	s.logger.Info().Uint("response_id", response.ID).Uint("order_id", order.ID).Uint("responder_id", actor.ID).Msg("response created")
	s.publish(ctx, events.TypeResponseCreated, map[string]interface{}{
		"response_id":  response.ID,
		"order_id":     order.ID,
		"responder_id": actor.ID,
	})

	return dto.NewBidResponse(response), nil
}

// Get is limited to the bid author and the order creator.
func (s *responseService) Get(ctx context.Context, actor Actor, id uint) (dto.BidResponse, error) {
	response, order, err := s.loadPair(ctx, id)
	if err != nil {
		return dto.BidResponse{}, err
	}
	if response.ResponderID != actor.ID && order.CreatorID != actor.ID {
		return dto.BidResponse{}, ErrResponseForbidden
	}
	return dto.NewBidResponse(response), nil
}

// ListForOrder shows every bid to the order creator and only the caller's own bid to anyone else.
func (s *responseService) ListForOrder(ctx context.Context, actor Actor, orderID uint, req dto.ResponseListRequest) (dto.BidListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BidListResponse{}, validationError(err)
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return dto.BidListResponse{}, err
	}

	filter := repository.ResponseFilter{
		OrderID:  order.ID,
		Status:   models.ResponseStatus(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if order.CreatorID != actor.ID {
		filter.ResponderID = actor.ID
	}
	return s.list(ctx, filter)
}

func (s *responseService) ListMine(ctx context.Context, actor Actor, req dto.ResponseListRequest) (dto.BidListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BidListResponse{}, validationError(err)
	}
	return s.list(ctx, repository.ResponseFilter{
		ResponderID: actor.ID,
		Status:      models.ResponseStatus(req.Status),
		Page:        req.Page,
		PageSize:    req.PageSize,
	})
}

// Accept takes the bid, completes the order and denies the remaining proposed bids in one
// transaction.
func (s *responseService) Accept(ctx context.Context, actor Actor, id uint) (dto.AcceptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "response.accept")
	span.SetAttributes(attribute.Int64("response.id", int64(id)))
	defer span.End()

	response, order, err := s.loadPair(ctx, id)
	if err != nil {
		return dto.AcceptResponse{}, err
	}
	if order.CreatorID != actor.ID {
		span.SetStatus(codes.Error, "not_creator")
		return dto.AcceptResponse{}, ErrOrderForbidden
	}
	if response.Status != models.ResponseStatusProposed {
		return dto.AcceptResponse{}, ErrResponseNotProposed
	}
	if order.Status != models.OrderStatusActive {
		return dto.AcceptResponse{}, ErrOrderNotActive
	}

	denied, err := s.responses.Accept(ctx, response)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			span.SetStatus(codes.Error, "stale_state")
			return dto.AcceptResponse{}, ErrResponseNotProposed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "response_accept_failed")
		return dto.AcceptResponse{}, err
	}

	response.Status = models.ResponseStatusTaken
	order, err = s.loadOrder(ctx, order.ID)
	if err != nil {
		return dto.AcceptResponse{}, err
	}

	observability.Responses().WithLabelValues("accepted").Inc()
	if denied > 0 {
		observability.Responses().WithLabelValues("denied").Add(float64(denied))
	}
	s.logger.Info().
		Uint("response_id", response.ID).
		Uint("order_id", order.ID).
		Int64("denied", denied).
		Msg("response accepted")
	s.publish(ctx, events.TypeResponseAccepted, map[string]interface{}{
		"response_id":  response.ID,
		"order_id":     order.ID,
		"responder_id": response.ResponderID,
		"denied":       denied,
	})

	return dto.AcceptResponse{
		Response:    dto.NewBidResponse(response),
		Order:       dto.NewOrderResponse(order),
		DeniedCount: denied,
	}, nil
}

// Deny is open to the bid author and the order creator.
func (s *responseService) Deny(ctx context.Context, actor Actor, id uint) (dto.BidResponse, error) {
	ctx, span := s.tracer.Start(ctx, "response.deny")
	span.SetAttributes(attribute.Int64("response.id", int64(id)))
	defer span.End()

	response, order, err := s.loadPair(ctx, id)
	if err != nil {
		return dto.BidResponse{}, err
	}
	if response.ResponderID != actor.ID && order.CreatorID != actor.ID {
		return dto.BidResponse{}, ErrResponseForbidden
	}
	if response.Status != models.ResponseStatusProposed {
		return dto.BidResponse{}, ErrResponseNotProposed
	}

	if err := s.responses.Deny(ctx, response.ID); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return dto.BidResponse{}, ErrResponseNotProposed
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "response_deny_failed")
		return dto.BidResponse{}, err
	}
	response.Status = models.ResponseStatusDenied

	observability.Responses().WithLabelValues("denied").Inc()
	s.logger.Info().Uint("response_id", response.ID).Uint("actor_id", actor.ID).Msg("response denied")
	return dto.NewBidResponse(response), nil
}

// Delete withdraws a proposed bid. Only its author may do it.
func (s *responseService) Delete(ctx context.Context, actor Actor, id uint) error {
	response, err := s.responses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResponseNotFound
		}
		return err
	}
	if response.ResponderID != actor.ID {
		return ErrResponseForbidden
	}
	if response.Status != models.ResponseStatusProposed {
		return ErrResponseNotProposed
	}

	if err := s.responses.Delete(ctx, response); err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return ErrResponseNotProposed
		}
		return err
	}

	observability.Responses().WithLabelValues("withdrawn").Inc()
	s.logger.Info().Uint("response_id", response.ID).Msg("response withdrawn")
	return nil
}

func (s *responseService) list(ctx context.Context, filter repository.ResponseFilter) (dto.BidListResponse, error) {
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)
	responses, total, err := s.responses.List(ctx, filter)
	if err != nil {
		return dto.BidListResponse{}, err
	}
	return dto.BidListResponse{
		Items:      dto.NewBidResponseSlice(responses),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *responseService) loadOrder(ctx context.Context, id uint) (models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

func (s *responseService) loadPair(ctx context.Context, id uint) (models.Response, models.Order, error) {
	response, err := s.responses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Response{}, models.Order{}, ErrResponseNotFound
		}
		return models.Response{}, models.Order{}, err
	}
	order, err := s.loadOrder(ctx, response.OrderID)
	if err != nil {
		return models.Response{}, models.Order{}, err
	}
	return response, order, nil
}

func (s *responseService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
