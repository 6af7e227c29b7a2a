package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/auth"
	"github.com/noah-isme/medlink-api/internal/config"
	"github.com/noah-isme/medlink-api/internal/database"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/handler"
	"github.com/noah-isme/medlink-api/internal/middleware"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
	"github.com/noah-isme/medlink-api/internal/router"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Total    int64 `json:"total"`
	} `json:"meta"`
	Message string `json:"message"`
}

type testAPI struct {
	app       *fiber.App
	db        *gorm.DB
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords auth.PasswordHasher
}

// newTestAPI wires the real services and router against an in-memory sqlite database.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	tokens, err := auth.NewTokenService("handler-secret", "HS256", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordHasher(4)
	validate := validation.New()
	logger := zerolog.Nop()
	publisher := events.NopPublisher{}

	users := repository.NewUserRepository(db)
	clinics := repository.NewClinicRepository(db)
	orders := repository.NewOrderRepository(db)
	responses := repository.NewResponseRepository(db)
	reviews := repository.NewReviewRepository(db)
	chats := repository.NewChatRepository(db)

	responseService := service.NewResponseService(responses, orders, publisher, validate, logger)
	chatService := service.NewChatService(chats, users, nil, publisher, service.ChatOptions{}, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: "handler-secret"}, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(service.NewAuthService(users, tokens, passwords, publisher, validate, logger), logger),
		SettingsHandler: handler.NewSettingsHandler(service.NewSettingsService(users, tokens, passwords, validate, logger), logger),
		ProfileHandler:  handler.NewProfileHandler(service.NewProfileService(users, logger), logger),
		AdminHandler:    handler.NewAdminHandler(service.NewAdminService(users, repository.NewAdminRepository(db), publisher, validate, logger), logger),
		ClinicHandler:   handler.NewClinicHandler(service.NewClinicService(clinics, users, validate, logger), logger),
		OrderHandler:    handler.NewOrderHandler(service.NewOrderService(orders, users, clinics, publisher, validate, logger), responseService, logger),
		ResponseHandler: handler.NewResponseHandler(responseService, logger),
		ReviewHandler: handler.NewReviewHandler(service.NewReviewService(service.ReviewDependencies{
			Reviews:   reviews,
			Orders:    orders,
			Responses: responses,
			Users:     users,
			Clinics:   clinics,
		}, publisher, validate, logger), logger),
		ChatHandler:           handler.NewChatHandler(chatService, service.NewAttachmentService(nil, chats, chatService, 1, validate, logger), logger),
		JWTMiddleware:         middleware.JWTProtected(tokens),
		OptionalJWTMiddleware: middleware.JWTOptional(tokens),
		DisableMetrics:        true,
	})

	return &testAPI{app: app, db: db, users: users, tokens: tokens, passwords: passwords}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var out envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

type account struct {
	ID    uint
	Token string
}

func registerBody(role models.Role, nickname string) map[string]interface{} {
	body := map[string]interface{}{
		"role":         string(role),
		"nickname":     nickname,
		"name":         "Test " + string(role),
		"country":      "DE",
		"email":        nickname + "@example.com",
		"phone_number": "+4930123456",
		"password":     "s3cret-pass",
	}
	switch role {
	case models.RolePatient:
		body["city"] = "Berlin"
	case models.RoleSpecialist:
		body["specifications"] = []string{"Cardiology"}
		body["qualification"] = "MD"
		body["experience"] = 5
	case models.RoleOrganization:
		body["locations"] = []string{"Berlin"}
	}
	return body
}

// signUp registers through the API and logs in to obtain a token.
func (a *testAPI) signUp(t *testing.T, role models.Role, nickname string) account {
	t.Helper()

	resp, env := a.do(t, http.MethodPost, "/api/v1/auth/register", "", registerBody(role, nickname))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, env.Message)

	resp, env = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"nickname": nickname,
		"password": "s3cret-pass",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, env.Message)

	var login struct {
		Profile struct {
			ID uint `json:"id"`
		} `json:"profile"`
		AccessToken string `json:"access_token"`
	}
	decodeData(t, env, &login)
	require.NotEmpty(t, login.AccessToken)
	return account{ID: login.Profile.ID, Token: login.AccessToken}
}

func (a *testAPI) seedAdmin(t *testing.T, nickname string, role models.AdminRole) account {
	t.Helper()
	digest, err := a.passwords.Hash("s3cret-pass")
	require.NoError(t, err)

	user := models.User{
		Nickname:     nickname,
		Name:         "Admin",
		Role:         models.RoleAdmin,
		Email:        nickname + "@example.com",
		PhoneNumber:  "+4930123456",
		PasswordHash: digest,
		Admin:        &models.AdminProfile{AdminRole: role},
	}
	require.NoError(t, a.users.Create(context.Background(), &user))

	token, _, err := a.tokens.Issue(user.ID, string(models.RoleAdmin))
	require.NoError(t, err)
	return account{ID: user.ID, Token: token}
}

func orderBody() map[string]interface{} {
	return map[string]interface{}{
		"service_type":   "Consultation",
		"description":    "Need a second opinion on my blood test results",
		"specifications": []string{"Cardiology"},
		"preferred_date": "2026-03-03T09:00:00Z",
	}
}
