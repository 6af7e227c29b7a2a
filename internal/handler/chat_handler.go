package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/utils"
)

// ChatHandler exposes poll-based two-party chats.
type ChatHandler struct {
	chats       service.ChatService
	attachments service.AttachmentService
	logger      zerolog.Logger
}

// NewChatHandler constructs the handler. attachments may be nil, in which case
// uploads answer 501.
func NewChatHandler(chats service.ChatService, attachments service.AttachmentService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chats:       chats,
		attachments: attachments,
		logger:      logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register wires routes for chats onto an authenticated group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.open)
	router.Post("/text", h.sendTextTo)
	router.Get("/:id", h.get)
	router.Get("/:id/messages", h.messages)
	router.Post("/:id/messages", h.send)
	router.Post("/:id/attachments", h.upload)
	router.Get("/:id/unread", h.unread)
	router.Get("/:id/last", h.last)
	router.Post("/:id/read", h.markAllRead)
}

// RegisterMessages wires routes addressing single messages.
func (h *ChatHandler) RegisterMessages(router fiber.Router) {
	router.Get("/:id", h.getMessage)
	router.Post("/:id/read", h.markMessageRead)
	router.Patch("/:id", h.editMessage)
	router.Delete("/:id", h.deleteMessage)
}

func (h *ChatHandler) list(c *fiber.Ctx) error {
	chats, err := h.chats.List(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "list chats")
	}
	return utils.SendSuccess(c, "chats retrieved", chats)
}

func (h *ChatHandler) open(c *fiber.Ctx) error {
	var req dto.ChatCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	chat, created, err := h.chats.Open(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "open chat")
	}
	if created {
		return utils.SendCreated(c, "chat created", chat)
	}
	return utils.SendSuccess(c, "chat retrieved", chat)
}

func (h *ChatHandler) sendTextTo(c *fiber.Ctx) error {
	var req dto.TextToRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	chat, err := h.chats.SendTextTo(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "send message")
	}
	return utils.SendCreated(c, "message sent", chat)
}

func (h *ChatHandler) get(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	chat, err := h.chats.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "load chat")
	}
	return utils.SendSuccess(c, "chat retrieved", chat)
}

func (h *ChatHandler) messages(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}

	var query dto.ChatHistoryQuery
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "before must be an RFC3339 timestamp")
		}
		query.Before = &before
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	query.Limit = limit

	messages, err := h.chats.Messages(c.UserContext(), actorFromContext(c), id, query)
	if err != nil {
		return respondError(c, h.logger, err, "list messages")
	}
	return utils.SendSuccess(c, "messages retrieved", messages)
}

func (h *ChatHandler) send(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.MessageCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	message, err := h.chats.Send(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "send message")
	}
	return utils.SendCreated(c, "message sent", message)
}

func (h *ChatHandler) upload(c *fiber.Ctx) error {
	if h.attachments == nil {
		return utils.SendError(c, fiber.StatusNotImplemented, service.ErrStorageNotConfigured.Error())
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	var meta dto.AttachmentRequest
	if raw := strings.TrimSpace(c.FormValue("duration")); raw != "" {
		if meta.Duration, err = strconv.ParseFloat(raw, 64); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid duration")
		}
	}
	if raw := strings.TrimSpace(c.FormValue("width")); raw != "" {
		if meta.Width, err = strconv.Atoi(raw); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid width")
		}
	}
	if raw := strings.TrimSpace(c.FormValue("height")); raw != "" {
		if meta.Height, err = strconv.Atoi(raw); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid height")
		}
	}

	message, err := h.attachments.Upload(c.UserContext(), actorFromContext(c), id, file, meta)
	if err != nil {
		return respondError(c, h.logger, err, "upload attachment")
	}
	return utils.SendCreated(c, "attachment sent", message)
}

func (h *ChatHandler) unread(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	result, err := h.chats.Unread(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "count unread messages")
	}
	return utils.SendSuccess(c, "unread messages counted", result)
}

func (h *ChatHandler) last(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	message, err := h.chats.LastMessage(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "load last message")
	}
	if message == nil {
		return utils.SendSuccess(c, "chat is empty", nil)
	}
	return utils.SendSuccess(c, "last message retrieved", message)
}

func (h *ChatHandler) markAllRead(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	result, err := h.chats.MarkAllRead(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "mark chat read")
	}
	return utils.SendSuccess(c, "messages marked as read", result)
}

func (h *ChatHandler) getMessage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	message, err := h.chats.GetMessage(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "load message")
	}
	return utils.SendSuccess(c, "message retrieved", message)
}

func (h *ChatHandler) markMessageRead(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	message, err := h.chats.MarkMessageRead(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "mark message read")
	}
	return utils.SendSuccess(c, "message marked as read", message)
}

func (h *ChatHandler) editMessage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	var req dto.MessageUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	message, err := h.chats.EditMessage(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "edit message")
	}
	return utils.SendSuccess(c, "message updated", message)
}

func (h *ChatHandler) deleteMessage(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return invalidID(c)
	}
	if err := h.chats.DeleteMessage(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "delete message")
	}
	return utils.SendDeleted(c, "message deleted", id)
}
