package service

import (
	"context"
	"errors"
	"math"
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
	"github.com/noah-isme/medlink-api/internal/observability"
	"github.com/noah-isme/medlink-api/internal/repository"
)

// ReviewService manages ratings left after an order is settled.
type ReviewService interface {
	Create(ctx context.Context, actor Actor, req dto.ReviewCreateRequest) (dto.ReviewResponse, error)
	Get(ctx context.Context, id uint) (dto.ReviewResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ReviewUpdateRequest) (dto.ReviewResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	Respond(ctx context.Context, actor Actor, id uint, req dto.ReviewReplyRequest) (dto.ReviewResponse, error)
	ForTarget(ctx context.Context, targetType string, targetID uint, req dto.ReviewTargetRequest) (dto.ReviewListResponse, error)
	ByUser(ctx context.Context, actor Actor, userID uint, page, pageSize int) (dto.ReviewListResponse, error)
	Rating(ctx context.Context, targetType string, targetID uint) (dto.RatingResponse, error)
}

type reviewService struct {
	reviews   repository.ReviewRepository
	orders    repository.OrderRepository
	responses repository.ResponseRepository
	users     repository.UserRepository
	clinics   repository.ClinicRepository
	events    events.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// ReviewDependencies groups the repositories the review use cases read from.
type ReviewDependencies struct {
	Reviews   repository.ReviewRepository
	Orders    repository.OrderRepository
	Responses repository.ResponseRepository
	Users     repository.UserRepository
	Clinics   repository.ClinicRepository
}

// NewReviewService constructs the review use cases.
func NewReviewService(deps ReviewDependencies, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &reviewService{
		reviews:   deps.Reviews,
		orders:    deps.Orders,
		responses: deps.Responses,
		users:     deps.Users,
		clinics:   deps.Clinics,
		events:    publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "review_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/review"),
		now:       time.Now,
	}
}

func (s *reviewService) Create(ctx context.Context, actor Actor, req dto.ReviewCreateRequest) (dto.ReviewResponse, error) {
	ctx, span := s.tracer.Start(ctx, "review.create")
	span.SetAttributes(
		attribute.Int64("order.id", int64(req.OrderID)),
		attribute.String("target.type", req.TargetType),
	)
	defer span.End()

	review, err := s.create(ctx, actor, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "review_create_failed")
		return dto.ReviewResponse{}, err
	}

	observability.ReviewsCreated().WithLabelValues(string(review.TargetType)).Inc()
	s.logger.Info().
		Uint("review_id", review.ID).
		Uint("order_id", review.OrderID).
		Uint("sender_id", review.SenderID).
		Msg("review created")
	s.publish(ctx, events.TypeReviewCreated, map[string]interface{}{
		"review_id":   review.ID,
		"order_id":    review.OrderID,
		"target_id":   review.TargetID,
		"target_type": review.TargetType,
		"rate":        review.Rate,
	})
	return dto.NewReviewResponse(review), nil
}

func (s *reviewService) create(ctx context.Context, actor Actor, req dto.ReviewCreateRequest) (models.Review, error) {
	req.Text = strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if err := s.validator.Struct(req); err != nil {
		return models.Review{}, validationError(err)
	}
	targetType := models.ReviewTargetType(req.TargetType)

	policy, ok := policyFor(actor.Role)
	if !ok || !policy.mayReview(targetType) {
		return models.Review{}, ErrReviewTargetNotAllow
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Review{}, ErrOrderNotFound
		}
		return models.Review{}, err
	}
	if order.Status == models.OrderStatusActive {
		return models.Review{}, ErrReviewOrderActive
	}
	if err := s.requireParticipant(ctx, actor, order); err != nil {
		return models.Review{}, err
	}
	if targetType != models.ReviewTargetClinic && req.TargetID == actor.ID {
		return models.Review{}, fieldError("cannot review yourself")
	}
	if err := s.requireTarget(ctx, req.TargetID, targetType); err != nil {
		return models.Review{}, err
	}

	exists, err := s.reviews.Exists(ctx, order.ID, actor.ID, req.TargetID, targetType)
	if err != nil {
		return models.Review{}, err
	}
	if exists {
		return models.Review{}, ErrReviewDuplicate
	}

	review := models.Review{
		SenderID:   actor.ID,
		OrderID:    order.ID,
		TargetID:   req.TargetID,
		TargetType: targetType,
		Text:       req.Text,
		Rate:       req.Rate,
	}
	if err := s.reviews.Create(ctx, &review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Review{}, ErrReviewDuplicate
		}
		return models.Review{}, err
	}
	return review, nil
}

func (s *reviewService) Get(ctx context.Context, id uint) (dto.ReviewResponse, error) {
	review, err := s.load(ctx, id)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	return dto.NewReviewResponse(review), nil
}

func (s *reviewService) Update(ctx context.Context, actor Actor, id uint, req dto.ReviewUpdateRequest) (dto.ReviewResponse, error) {
	if req.Text != nil {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(*req.Text))
		req.Text = &clean
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ReviewResponse{}, validationError(err)
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	if review.SenderID != actor.ID {
		return dto.ReviewResponse{}, ErrReviewForbidden
	}

	if req.Text != nil {
		review.Text = *req.Text
	}
	if req.Rate != nil {
		review.Rate = *req.Rate
	}
	if err := s.reviews.Update(ctx, &review); err != nil {
		return dto.ReviewResponse{}, err
	}

	s.logger.Info().Uint("review_id", review.ID).Msg("review updated")
	return dto.NewReviewResponse(review), nil
}

func (s *reviewService) Delete(ctx context.Context, actor Actor, id uint) error {
	review, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if review.SenderID != actor.ID {
		return ErrReviewForbidden
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	s.logger.Info().Uint("review_id", review.ID).Msg("review deleted")
	return nil
}

// Respond stores the target's answer. For a clinic review the owning organization answers.
func (s *reviewService) Respond(ctx context.Context, actor Actor, id uint, req dto.ReviewReplyRequest) (dto.ReviewResponse, error) {
	req.Text = strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if err := s.validator.Struct(req); err != nil {
		return dto.ReviewResponse{}, validationError(err)
	}

	review, err := s.load(ctx, id)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	ownerID := review.TargetID
	if review.TargetType == models.ReviewTargetClinic {
		clinic, err := s.clinics.GetByID(ctx, review.TargetID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ReviewResponse{}, ErrReviewTargetNotFound
			}
			return dto.ReviewResponse{}, err
		}
		ownerID = clinic.OrganizationID
	}
	if ownerID != actor.ID {
		return dto.ReviewResponse{}, ErrReviewForbidden
	}

	answeredAt := s.now().UTC()
	review.Response = &req.Text
	review.RespondedAt = &answeredAt
	if err := s.reviews.Update(ctx, &review); err != nil {
		return dto.ReviewResponse{}, err
	}

	s.logger.Info().Uint("review_id", review.ID).Uint("responder_id", actor.ID).Msg("review answered")
	return dto.NewReviewResponse(review), nil
}

func (s *reviewService) ForTarget(ctx context.Context, targetType string, targetID uint, req dto.ReviewTargetRequest) (dto.ReviewListResponse, error) {
	kind, err := parseTargetType(targetType)
	if err != nil {
		return dto.ReviewListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ReviewListResponse{}, validationError(err)
	}
	if req.MinRating > 0 && req.MaxRating > 0 && req.MinRating > req.MaxRating {
		return dto.ReviewListResponse{}, fieldError("min_rating must not exceed max_rating")
	}

	return s.list(ctx, repository.ReviewFilter{
		TargetID:   targetID,
		TargetType: kind,
		MinRating:  req.MinRating,
		MaxRating:  req.MaxRating,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
}

// ByUser lists reviews written by a user. Visible to that user and to admins.
func (s *reviewService) ByUser(ctx context.Context, actor Actor, userID uint, page, pageSize int) (dto.ReviewListResponse, error) {
	if actor.ID != userID && actor.Role != models.RoleAdmin {
		return dto.ReviewListResponse{}, ErrReviewForbidden
	}
	return s.list(ctx, repository.ReviewFilter{SenderID: userID, Page: page, PageSize: pageSize})
}

func (s *reviewService) Rating(ctx context.Context, targetType string, targetID uint) (dto.RatingResponse, error) {
	kind, err := parseTargetType(targetType)
	if err != nil {
		return dto.RatingResponse{}, err
	}
	summary, err := s.reviews.Rating(ctx, targetID, kind)
	if err != nil {
		return dto.RatingResponse{}, err
	}
	return dto.RatingResponse{
		TargetID:   targetID,
		TargetType: string(kind),
		Average:    math.Round(summary.Average*10) / 10,
		Count:      summary.Count,
	}, nil
}

func (s *reviewService) list(ctx context.Context, filter repository.ReviewFilter) (dto.ReviewListResponse, error) {
	filter.Page, filter.PageSize = dto.NormalizePage(filter.Page, filter.PageSize)
	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return dto.ReviewListResponse{}, err
	}
	return dto.ReviewListResponse{
		Items:      dto.NewReviewResponseSlice(reviews),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *reviewService) load(ctx context.Context, id uint) (models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Review{}, ErrReviewNotFound
		}
		return models.Review{}, err
	}
	return review, nil
}

// requireParticipant accepts the order creator, the linked patient or specialist, and the
// responder whose bid was taken.
func (s *reviewService) requireParticipant(ctx context.Context, actor Actor, order models.Order) error {
	if order.CreatorID == actor.ID {
		return nil
	}
	if order.PatientID != nil && *order.PatientID == actor.ID {
		return nil
	}
	if order.SpecialistID != nil && *order.SpecialistID == actor.ID {
		return nil
	}

	_, taken, err := s.responses.List(ctx, repository.ResponseFilter{
		OrderID:     order.ID,
		ResponderID: actor.ID,
		Status:      models.ResponseStatusTaken,
	})
	if err != nil {
		return err
	}
	if taken == 0 {
		return ErrReviewNotParticipant
	}
	return nil
}

func (s *reviewService) requireTarget(ctx context.Context, targetID uint, targetType models.ReviewTargetType) error {
	if targetType == models.ReviewTargetClinic {
		if _, err := s.clinics.GetByID(ctx, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReviewTargetNotFound
			}
			return err
		}
		return nil
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewTargetNotFound
		}
		return err
	}
	if string(target.Role) != string(targetType) {
		return ErrReviewTargetNotFound
	}
	return nil
}

func (s *reviewService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func parseTargetType(value string) (models.ReviewTargetType, error) {
	switch kind := models.ReviewTargetType(strings.ToLower(strings.TrimSpace(value))); kind {
	case models.ReviewTargetSpecialist, models.ReviewTargetOrganization, models.ReviewTargetClinic:
		return kind, nil
	default:
		return "", fieldError("unknown review target type %q", value)
	}
}
