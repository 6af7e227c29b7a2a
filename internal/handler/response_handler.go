package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// ResponseHandler exposes bid decisions. Bids are created under /orders/:id/responses.
type ResponseHandler struct {
	service service.ResponseService
	logger  zerolog.Logger
}

// NewResponseHandler constructs the handler.
func NewResponseHandler(service service.ResponseService, logger zerolog.Logger) *ResponseHandler {
	return &ResponseHandler{
		service: service,
		logger:  logger.With().Str("component", "response_handler").Logger(),
	}
}

// Register wires routes for responses.
func (h *ResponseHandler) Register(router fiber.Router) {
	router.Get("/mine", h.listMine)
	router.Get("/:id", h.get)
	router.Post("/:id/accept", h.accept)
	router.Post("/:id/deny", h.deny)
	router.Delete("/:id", h.delete)
}

func (h *ResponseHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	bid, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "load response")
	}
	return utils.SendSuccess(c, "response retrieved", bid)
}

func (h *ResponseHandler) listMine(c *fiber.Ctx) error {
	var req dto.ResponseListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.ListMine(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "list responses")
	}
	return sendPage(c, "responses retrieved", result.Items, result.Pagination)
}

func (h *ResponseHandler) accept(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}

	result, err := h.service.Accept(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "accept response")
	}

	logger := requestLogger(h.logger, c)
	logger.Info().
		Uint("response_id", id).
		Uint("order_id", result.Order.ID).
		Int64("denied", result.DeniedCount).
		Msg("response accepted")

	return utils.SendSuccess(c, "response accepted", result)
}

func (h *ResponseHandler) deny(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	bid, err := h.service.Deny(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "deny response")
	}
	return utils.SendSuccess(c, "response denied", bid)
}

func (h *ResponseHandler) delete(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "withdraw response")
	}
	return utils.SendDeleted(c, "response withdrawn", id)
}
