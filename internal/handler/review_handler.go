package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// ReviewHandler exposes reviews, replies and ratings.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register wires routes for reviews.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/user/:id", h.byUser)
	router.Get("/target/:type/:id", h.forTarget)
	router.Get("/target/:type/:id/rating", h.rating)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/response", h.respond)
}

func (h *ReviewHandler) create(c *fiber.Ctx) error {
	var req dto.ReviewCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	review, err := h.service.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "create review")
	}
	return utils.SendCreated(c, "review created", review)
}

func (h *ReviewHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	review, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "load review")
	}
	return utils.SendSuccess(c, "review retrieved", review)
}

func (h *ReviewHandler) update(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ReviewUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	review, err := h.service.Update(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "update review")
	}
	return utils.SendSuccess(c, "review updated", review)
}

func (h *ReviewHandler) delete(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "delete review")
	}
	return utils.SendDeleted(c, "review deleted", id)
}

func (h *ReviewHandler) respond(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ReviewReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	review, err := h.service.Respond(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "answer review")
	}
	return utils.SendSuccess(c, "review answered", review)
}

func (h *ReviewHandler) forTarget(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ReviewTargetRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.ForTarget(c.UserContext(), c.Params("type"), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "list reviews")
	}
	return sendPage(c, "reviews retrieved", result.Items, result.Pagination)
}

func (h *ReviewHandler) rating(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	rating, err := h.service.Rating(c.UserContext(), c.Params("type"), id)
	if err != nil {
		return respondError(c, h.logger, err, "compute rating")
	}
	return utils.SendSuccess(c, "rating retrieved", rating)
}

func (h *ReviewHandler) byUser(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.ByUser(c.UserContext(), actorFromContext(c), id, page, pageSize)
	if err != nil {
		return respondError(c, h.logger, err, "list reviews")
	}
	return sendPage(c, "reviews retrieved", result.Items, result.Pagination)
}
