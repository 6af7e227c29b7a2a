package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/auth"
	"github.com/noah-isme/medlink-api/internal/database"
	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
	"github.com/noah-isme/medlink-api/internal/validation"
)

var preferredDate = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

// marketplace wires every service against one in-memory database.
type marketplace struct {
	db        *gorm.DB
	users     repository.UserRepository
	chatRepo  repository.ChatRepository
	tokens    *auth.TokenService
	passwords auth.PasswordHasher
	events    *recordingPublisher

	auth      AuthService
	settings  SettingsService
	profiles  ProfileService
	admin     AdminService
	clinics   ClinicService
	orders    OrderService
	responses ResponseService
	reviews   ReviewService
	chats     ChatService
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	tokens, err := auth.NewTokenService("test-secret", "HS256", time.Hour)
	require.NoError(t, err)

	users := repository.NewUserRepository(db)
	clinicRepo := repository.NewClinicRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	chatRepo := repository.NewChatRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	validate := validation.New()
	logger := testLogger()
	passwords := auth.NewPasswordHasher(4)
	publisher := &recordingPublisher{}

	m := &marketplace{
		db:        db,
		users:     users,
		chatRepo:  chatRepo,
		tokens:    tokens,
		passwords: passwords,
		events:    publisher,
	}
	m.auth = NewAuthService(users, tokens, passwords, publisher, validate, logger)
	m.settings = NewSettingsService(users, tokens, passwords, validate, logger)
	m.profiles = NewProfileService(users, logger)
	m.admin = NewAdminService(users, adminRepo, publisher, validate, logger)
	m.clinics = NewClinicService(clinicRepo, users, validate, logger)
	m.orders = NewOrderService(orderRepo, users, clinicRepo, publisher, validate, logger)
	m.responses = NewResponseService(responseRepo, orderRepo, publisher, validate, logger)
	m.reviews = NewReviewService(ReviewDependencies{
		Reviews:   reviewRepo,
		Orders:    orderRepo,
		Responses: responseRepo,
		Users:     users,
		Clinics:   clinicRepo,
	}, publisher, validate, logger)
	m.chats = NewChatService(chatRepo, users, nil, publisher, ChatOptions{}, validate, logger)
	return m
}

func registerPayload(role models.Role, nickname string) dto.RegisterRequest {
	payload := dto.RegisterRequest{
		Role:        string(role),
		Nickname:    nickname,
		Name:        "Test " + string(role),
		Country:     "DE",
		Email:       nickname + "@example.com",
		PhoneNumber: "+4930123456",
		Password:    "s3cret-pass",
	}
	switch role {
	case models.RolePatient:
		city := "Berlin"
		payload.City = &city
	case models.RoleSpecialist:
		qualification := "MD"
		payload.Specifications = []string{"Cardiology"}
		payload.Qualification = &qualification
		payload.Experience = 7
	case models.RoleOrganization:
		payload.Locations = []string{"Berlin"}
	}
	return payload
}

func (m *marketplace) register(t *testing.T, role models.Role, nickname string) Actor {
	t.Helper()
	profile, err := m.auth.Register(context.Background(), registerPayload(role, nickname), nil)
	require.NoError(t, err)
	return Actor{ID: profile.ID, Role: role}
}

// seedAdmin bypasses registration, which itself needs an administrator.
func (m *marketplace) seedAdmin(t *testing.T, nickname string, adminRole models.AdminRole) Actor {
	t.Helper()
	digest, err := m.passwords.Hash("s3cret-pass")
	require.NoError(t, err)

	user := models.User{
		Nickname:     nickname,
		Name:         "Admin",
		Role:         models.RoleAdmin,
		Email:        nickname + "@example.com",
		PhoneNumber:  "+4930123456",
		PasswordHash: digest,
		Admin:        &models.AdminProfile{AdminRole: adminRole},
	}
	require.NoError(t, m.users.Create(context.Background(), &user))
	return Actor{ID: user.ID, Role: models.RoleAdmin}
}

func (m *marketplace) token(t *testing.T, actor Actor) string {
	t.Helper()
	token, _, err := m.tokens.Issue(actor.ID, string(actor.Role))
	require.NoError(t, err)
	return token
}

func (m *marketplace) createOrder(t *testing.T, creator Actor, mutate func(*dto.OrderCreateRequest)) dto.OrderResponse {
	t.Helper()
	req := dto.OrderCreateRequest{
		ServiceType:   "Consultation",
		Description:   "Need a second opinion on test results",
		PreferredDate: preferredDate,
	}
	if mutate != nil {
		mutate(&req)
	}
	order, err := m.orders.Create(context.Background(), creator, req)
	require.NoError(t, err)
	return order
}

func (m *marketplace) respond(t *testing.T, responder Actor, orderID uint) dto.BidResponse {
	t.Helper()
	bid, err := m.responses.Create(context.Background(), responder, orderID, dto.ResponseCreateRequest{
		Text: "Available tomorrow morning, ten years of practice.",
	})
	require.NoError(t, err)
	return bid
}
