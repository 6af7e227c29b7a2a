package utils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/utils"
)

func TestSendSuccessDefaultsMessage(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "", map[string]string{"hello": "world"})
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    map[string]string `json:"data"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, "world", payload.Data["hello"])
}

func TestSendPaginatedIncludesMeta(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendPaginated(c, "orders", []int{1, 2}, utils.NewPageMeta(2, 2, 5))
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool           `json:"success"`
		Data    []int          `json:"data"`
		Meta    utils.PageMeta `json:"meta"`
	}
	decode(t, resp, &payload)

	require.True(t, payload.Success)
	require.Equal(t, []int{1, 2}, payload.Data)
	require.Equal(t, utils.PageMeta{Page: 2, PageSize: 2, Total: 5, TotalPages: 3}, payload.Meta)
}

func TestSendErrorOmitsData(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusConflict, "duplicate response")
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var payload map[string]interface{}
	decode(t, resp, &payload)

	require.Equal(t, false, payload["success"])
	require.Equal(t, "duplicate response", payload["message"])
	_, hasData := payload["data"]
	require.False(t, hasData)
	_, hasRequestID := payload["request_id"]
	require.False(t, hasRequestID)
}

func TestSendErrorCarriesCorrelationID(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		c.Locals("correlation_id", "req-42")
		return utils.SendError(c, fiber.StatusNotFound, "order not found")
	})

	resp := performRequest(t, app, http.MethodGet, "/")
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var payload utils.APIResponse
	decode(t, resp, &payload)
	require.Equal(t, "req-42", payload.RequestID)
}

func TestSendCreatedAndDeleted(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return utils.SendCreated(c, "clinic created", map[string]int{"id": 3})
	})
	app.Delete("/", func(c *fiber.Ctx) error {
		return utils.SendDeleted(c, "", 3)
	})

	resp := performRequest(t, app, http.MethodPost, "/")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = performRequest(t, app, http.MethodDelete, "/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var payload struct {
		Message string          `json:"message"`
		Data    map[string]uint `json:"data"`
	}
	decode(t, resp, &payload)
	require.Equal(t, "success", payload.Message)
	require.Equal(t, uint(3), payload.Data["id"])
}

func TestNewPageMeta(t *testing.T) {
	require.Equal(t, 0, utils.NewPageMeta(1, 20, 0).TotalPages)
	require.Equal(t, 1, utils.NewPageMeta(1, 20, 20).TotalPages)
	require.Equal(t, 2, utils.NewPageMeta(1, 20, 21).TotalPages)
	require.Equal(t, 0, utils.NewPageMeta(1, 0, 5).TotalPages)
}

func performRequest(t *testing.T, app *fiber.App, method, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
