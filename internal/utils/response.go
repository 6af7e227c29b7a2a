package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PageMeta   `json:"meta,omitempty"`
	Message string      `json:"message"`
	// RequestID echoes the correlation id on failures so clients can quote it.
	RequestID string `json:"request_id,omitempty"`
}

// PageMeta describes the pagination window of a list response.
type PageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPageMeta fills in TotalPages for the given window.
func NewPageMeta(page, pageSize int, total int64) PageMeta {
	meta := PageMeta{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return meta
}

// SendSuccess answers 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendCreated answers 201 with the created resource.
func SendCreated(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusCreated, message, data)
}

// SendDeleted answers 200 with the id of the removed resource.
func SendDeleted(c *fiber.Ctx, message string, id uint) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, fiber.Map{"id": id})
}

// SendSuccessWithStatus sends a success payload using the provided HTTP status code.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(APIResponse{
		Success: true,
		Data:    data,
		Message: orDefault(message, "success"),
	})
}

// SendPaginated sends a list page together with its window.
func SendPaginated(c *fiber.Ctx, message string, data interface{}, meta PageMeta) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success: true,
		Data:    data,
		Meta:    &meta,
		Message: orDefault(message, "success"),
	})
}

// SendError sends a failure envelope. The correlation id stored by the
// request middleware is attached when present.
func SendError(c *fiber.Ctx, status int, message string) error {
	requestID, _ := c.Locals("correlation_id").(string)
	return c.Status(status).JSON(APIResponse{
		Success:   false,
		Message:   orDefault(message, "error"),
		RequestID: requestID,
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
