package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// OrderHandler exposes the order lifecycle and the bids attached to orders.
type OrderHandler struct {
	orders    service.OrderService
	responses service.ResponseService
	logger    zerolog.Logger
}

// NewOrderHandler constructs the handler.
func NewOrderHandler(orders service.OrderService, responses service.ResponseService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		responses: responses,
		logger:    logger.With().Str("component", "order_handler").Logger(),
	}
}

// Register wires order routes onto an authenticated group.
func (h *OrderHandler) Register(router fiber.Router) {
	router.Get("", h.listOwn)
	router.Post("", h.create)
	router.Get("/feed", h.feed)
	router.Get("/assigned", h.assigned)
	router.Get("/:id", h.get)
	router.Patch("/:id/status", h.updateStatus)
	router.Delete("/:id", h.delete)
	router.Get("/:id/responses", h.listResponses)
	router.Post("/:id/responses", h.respond)
}

func (h *OrderHandler) create(c *fiber.Ctx) error {
	var req dto.OrderCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	order, err := h.orders.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "create order")
	}
	return utils.SendCreated(c, "order created", order)
}

func (h *OrderHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	order, err := h.orders.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "load order")
	}
	return utils.SendSuccess(c, "order retrieved", order)
}

func (h *OrderHandler) listOwn(c *fiber.Ctx) error {
	return h.list(c, h.orders.ListOwn)
}

func (h *OrderHandler) feed(c *fiber.Ctx) error {
	return h.list(c, h.orders.Feed)
}

func (h *OrderHandler) assigned(c *fiber.Ctx) error {
	return h.list(c, h.orders.Assigned)
}

type orderLister func(ctx context.Context, actor service.Actor, req dto.OrderListRequest) (dto.OrderListResponse, error)

func (h *OrderHandler) list(c *fiber.Ctx, fetch orderLister) error {
	var req dto.OrderListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := fetch(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "list orders")
	}
	return sendPage(c, "orders retrieved", result.Items, result.Pagination)
}

func (h *OrderHandler) updateStatus(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.OrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	order, err := h.orders.UpdateStatus(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "update order status")
	}
	return utils.SendSuccess(c, "order status updated", order)
}

func (h *OrderHandler) delete(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.orders.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "delete order")
	}
	return utils.SendDeleted(c, "order deleted", id)
}

func (h *OrderHandler) respond(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ResponseCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	bid, err := h.responses.Create(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "create response")
	}
	return utils.SendCreated(c, "response created", bid)
}

func (h *OrderHandler) listResponses(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ResponseListRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.responses.ListForOrder(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "list responses")
	}
	return sendPage(c, "responses retrieved", result.Items, result.Pagination)
}
