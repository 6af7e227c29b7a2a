package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// ClinicHandler exposes clinic lookups and management.
type ClinicHandler struct {
	service service.ClinicService
	logger  zerolog.Logger
}

// NewClinicHandler constructs the handler.
func NewClinicHandler(service service.ClinicService, logger zerolog.Logger) *ClinicHandler {
	return &ClinicHandler{
		service: service,
		logger:  logger.With().Str("component", "clinic_handler").Logger(),
	}
}

// Register wires clinic routes. Reads are public, mutations go through protected.
func (h *ClinicHandler) Register(router fiber.Router, protected fiber.Handler) {
	if protected == nil {
		protected = unauthenticated
	}

	router.Get("/search", h.search)
	router.Get("/organization/:id", h.listByOrganization)
	router.Get("/:id", h.get)
	router.Post("", protected, h.create)
	router.Put("/:id", protected, h.update)
	router.Delete("/:id", protected, h.delete)
}

func (h *ClinicHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	clinic, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "load clinic")
	}
	return utils.SendSuccess(c, "clinic retrieved", clinic)
}

func (h *ClinicHandler) search(c *fiber.Ctx) error {
	var req dto.ClinicSearchRequest
	if err := c.QueryParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	result, err := h.service.Search(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.logger, err, "search clinics")
	}
	return sendPage(c, "clinics retrieved", result.Items, result.Pagination)
}

func (h *ClinicHandler) listByOrganization(c *fiber.Ctx) error {
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

	result, err := h.service.ListByOrganization(c.UserContext(), id, page, pageSize)
	if err != nil {
		return respondError(c, h.logger, err, "list clinics")
	}
	return sendPage(c, "clinics retrieved", result.Items, result.Pagination)
}

func (h *ClinicHandler) create(c *fiber.Ctx) error {
	var req dto.ClinicCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	clinic, err := h.service.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "create clinic")
	}
	return utils.SendCreated(c, "clinic created", clinic)
}

func (h *ClinicHandler) update(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.ClinicUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	clinic, err := h.service.Update(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "update clinic")
	}
	return utils.SendSuccess(c, "clinic updated", clinic)
}

func (h *ClinicHandler) delete(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "delete clinic")
	}
	return utils.SendDeleted(c, "clinic deleted", id)
}
