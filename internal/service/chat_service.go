package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
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

const (
	defaultChatCacheTTL = 30 * time.Minute
	chatPreviewSize     = 50
)

// ChatOptions configures the last-message cache.
type ChatOptions struct {
	Channel  string
	CacheTTL time.Duration
}

// ChatService manages two-party chats and their polymorphic messages.
type ChatService interface {
	Open(ctx context.Context, actor Actor, req dto.ChatCreateRequest) (dto.ChatResponse, bool, error)
	SendTextTo(ctx context.Context, actor Actor, req dto.TextToRecipientRequest) (dto.ChatResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.ChatSummaryResponse, error)
	Get(ctx context.Context, actor Actor, chatID uint) (dto.ChatResponse, error)
	Messages(ctx context.Context, actor Actor, chatID uint, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error)
	Send(ctx context.Context, actor Actor, chatID uint, req dto.MessageCreateRequest) (dto.MessageResponse, error)
	Append(ctx context.Context, actor Actor, chatID uint, content models.MessageContent) (dto.MessageResponse, error)
	Unread(ctx context.Context, actor Actor, chatID uint) (dto.UnreadResponse, error)
	LastMessage(ctx context.Context, actor Actor, chatID uint) (*dto.MessageResponse, error)
	MarkAllRead(ctx context.Context, actor Actor, chatID uint) (dto.MarkReadResponse, error)
	GetMessage(ctx context.Context, actor Actor, messageID uint) (dto.MessageResponse, error)
	MarkMessageRead(ctx context.Context, actor Actor, messageID uint) (dto.MessageResponse, error)
	EditMessage(ctx context.Context, actor Actor, messageID uint, req dto.MessageUpdateRequest) (dto.MessageResponse, error)
	DeleteMessage(ctx context.Context, actor Actor, messageID uint) error
}

type chatService struct {
	chats     repository.ChatRepository
	users     repository.UserRepository
	redis     *redis.Client
	cacheKey  string
	cacheTTL  time.Duration
	events    events.Publisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewChatService creates the poll-based chat service. redisClient may be nil, in which
// case the last-message cache is skipped.
func NewChatService(chats repository.ChatRepository, users repository.UserRepository, redisClient *redis.Client, publisher events.Publisher, opts ChatOptions, validate *validator.Validate, logger zerolog.Logger) ChatService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultChatCacheTTL
	}
	cacheKey := ""
	if opts.Channel != "" {
		cacheKey = opts.Channel + ":chat:last"
	}

	return &chatService{
		chats:     chats,
		users:     users,
		redis:     redisClient,
		cacheKey:  cacheKey,
		cacheTTL:  ttl,
		events:    publisher,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "chat_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/chat"),
		now:       time.Now,
	}
}

// Open finds the chat of the pair or provisions it. The boolean reports whether it was created.
func (s *chatService) Open(ctx context.Context, actor Actor, req dto.ChatCreateRequest) (dto.ChatResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatResponse{}, false, validationError(err)
	}
	chat, created, err := s.findOrCreate(ctx, actor.ID, req.RecipientID, req.OrderID, req.ResponseID)
	if err != nil {
		return dto.ChatResponse{}, false, err
	}
	return dto.NewChatResponse(chat), created, nil
}

// SendTextTo finds or creates the chat with the recipient, appends the text and returns the
// chat with its recent messages.
func (s *chatService) SendTextTo(ctx context.Context, actor Actor, req dto.TextToRecipientRequest) (dto.ChatResponse, error) {
	req.Text = strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if err := s.validator.Struct(req); err != nil {
		return dto.ChatResponse{}, validationError(err)
	}

	chat, _, err := s.findOrCreate(ctx, actor.ID, req.RecipientID, nil, nil)
	if err != nil {
		return dto.ChatResponse{}, err
	}
	if _, err := s.appendMessage(ctx, actor, chat, models.TextContent{Text: req.Text}); err != nil {
		return dto.ChatResponse{}, err
	}

	chat, err = s.loadChat(ctx, actor, chat.ID)
	if err != nil {
		return dto.ChatResponse{}, err
	}
	return s.withMessages(ctx, chat)
}

func (s *chatService) List(ctx context.Context, actor Actor) ([]dto.ChatSummaryResponse, error) {
	chats, err := s.chats.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ChatSummaryResponse, 0, len(chats))
	for _, chat := range chats {
		unread, err := s.chats.CountUnread(ctx, chat.ID, actor.ID)
		if err != nil {
			return nil, err
		}
		summary := dto.ChatSummaryResponse{
			ChatResponse: dto.NewChatResponse(chat),
			PeerID:       chat.Peer(actor.ID),
			UnreadCount:  unread,
		}
		last, err := s.latest(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		summary.LastMessage = last
		out = append(out, summary)
	}
	return out, nil
}

func (s *chatService) Get(ctx context.Context, actor Actor, chatID uint) (dto.ChatResponse, error) {
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return dto.ChatResponse{}, err
	}
	return s.withMessages(ctx, chat)
}

func (s *chatService) Messages(ctx context.Context, actor Actor, chatID uint, query dto.ChatHistoryQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError(err)
	}
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return nil, err
	}

	var before time.Time
	if query.Before != nil {
		before = *query.Before
	}
	messages, err := s.chats.ListMessages(ctx, chat.ID, before, query.Limit)
	if err != nil {
		return nil, err
	}
	return s.toResponses(messages), nil
}

// Send appends a typed message. Only the fields of the selected variant are read.
func (s *chatService) Send(ctx context.Context, actor Actor, chatID uint, req dto.MessageCreateRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, validationError(err)
	}
	content, err := s.buildContent(req)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	return s.Append(ctx, actor, chatID, content)
}

// Append stores an already validated variant payload in the chat.
func (s *chatService) Append(ctx context.Context, actor Actor, chatID uint, content models.MessageContent) (dto.MessageResponse, error) {
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	return s.appendMessage(ctx, actor, chat, content)
}

func (s *chatService) Unread(ctx context.Context, actor Actor, chatID uint) (dto.UnreadResponse, error) {
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return dto.UnreadResponse{}, err
	}
	count, err := s.chats.CountUnread(ctx, chat.ID, actor.ID)
	if err != nil {
		return dto.UnreadResponse{}, err
	}
	return dto.UnreadResponse{ChatID: chat.ID, Count: count}, nil
}

// LastMessage reads the redis cache first and falls back to the database. It returns nil
// for an empty chat.
func (s *chatService) LastMessage(ctx context.Context, actor Actor, chatID uint) (*dto.MessageResponse, error) {
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return nil, err
	}
	return s.latest(ctx, chat.ID)
}

func (s *chatService) MarkAllRead(ctx context.Context, actor Actor, chatID uint) (dto.MarkReadResponse, error) {
	chat, err := s.loadChat(ctx, actor, chatID)
	if err != nil {
		return dto.MarkReadResponse{}, err
	}
	updated, err := s.chats.MarkAllRead(ctx, chat.ID, actor.ID)
	if err != nil {
		return dto.MarkReadResponse{}, err
	}
	if updated > 0 {
		s.invalidate(ctx, chat.ID)
	}
	return dto.MarkReadResponse{ChatID: chat.ID, Updated: updated}, nil
}

func (s *chatService) GetMessage(ctx context.Context, actor Actor, messageID uint) (dto.MessageResponse, error) {
	message, err := s.loadMessage(ctx, actor, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	return s.toResponse(message)
}

// MarkMessageRead flips the read flag when the caller is the receiving side.
func (s *chatService) MarkMessageRead(ctx context.Context, actor Actor, messageID uint) (dto.MessageResponse, error) {
	message, err := s.loadMessage(ctx, actor, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if message.SenderID != actor.ID && !message.IsRead {
		if err := s.chats.MarkRead(ctx, message.ID); err != nil {
			return dto.MessageResponse{}, err
		}
		message.IsRead = true
		s.invalidate(ctx, message.ChatID)
	}
	return s.toResponse(message)
}

func (s *chatService) EditMessage(ctx context.Context, actor Actor, messageID uint, req dto.MessageUpdateRequest) (dto.MessageResponse, error) {
	req.Text = strings.TrimSpace(s.sanitizer.Sanitize(req.Text))
	if err := s.validator.Struct(req); err != nil {
		return dto.MessageResponse{}, validationError(err)
	}

	message, err := s.loadMessage(ctx, actor, messageID)
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if message.SenderID != actor.ID {
		return dto.MessageResponse{}, ErrMessageForbidden
	}
	if message.Type != models.MessageTypeText {
		return dto.MessageResponse{}, ErrMessageNotEditable
	}

	raw, err := json.Marshal(models.TextContent{Text: req.Text})
	if err != nil {
		return dto.MessageResponse{}, err
	}
	editedAt := s.now().UTC()
	message.Content = raw
	message.EditedAt = &editedAt
	if err := s.chats.UpdateMessage(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}
	s.invalidate(ctx, message.ChatID)

	return s.toResponse(message)
}

func (s *chatService) DeleteMessage(ctx context.Context, actor Actor, messageID uint) error {
	message, err := s.loadMessage(ctx, actor, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != actor.ID {
		return ErrMessageForbidden
	}
	if err := s.chats.DeleteMessage(ctx, message.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	s.invalidate(ctx, message.ChatID)

	s.logger.Info().Uint("message_id", message.ID).Uint("chat_id", message.ChatID).Msg("message deleted")
	return nil
}

func (s *chatService) findOrCreate(ctx context.Context, initiatorID, recipientID uint, orderID, responseID *uint) (models.Chat, bool, error) {
	if initiatorID == recipientID {
		return models.Chat{}, false, ErrChatWithSelf
	}
	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Chat{}, false, ErrUserNotFound
		}
		return models.Chat{}, false, err
	}

	chat := models.Chat{
		InitiatorID: initiatorID,
		RecipientID: recipientID,
		OrderID:     orderID,
		ResponseID:  responseID,
	}
	created, err := s.chats.FindOrCreate(ctx, &chat)
	if err != nil {
		return models.Chat{}, false, err
	}
	if created {
		s.logger.Info().Uint("chat_id", chat.ID).Uint("initiator_id", initiatorID).Msg("chat created")
	}
	return chat, created, nil
}

func (s *chatService) appendMessage(ctx context.Context, actor Actor, chat models.Chat, content models.MessageContent) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "chat.send")
	span.SetAttributes(
		attribute.Int64("chat.id", int64(chat.ID)),
		attribute.String("message.type", string(content.Kind())),
	)
	defer span.End()

	message, err := models.NewMessage(chat.ID, actor.ID, content, s.now().UTC())
	if err != nil {
		return dto.MessageResponse{}, err
	}
	if err := s.chats.SaveMessage(ctx, &message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "message_save_failed")
		return dto.MessageResponse{}, err
	}

	resp, err := dto.NewMessageResponse(message)
	if err != nil {
		return dto.MessageResponse{}, err
	}

	observability.ChatMessages().WithLabelValues(string(message.Type)).Inc()
	s.cacheLast(ctx, resp)
	s.publish(ctx, events.TypeChatMessageSent, map[string]interface{}{
		"chat_id":    chat.ID,
		"message_id": message.ID,
		"sender_id":  actor.ID,
		"peer_id":    chat.Peer(actor.ID),
		"type":       message.Type,
	})
	return resp, nil
}

func (s *chatService) buildContent(req dto.MessageCreateRequest) (models.MessageContent, error) {
	switch models.MessageType(req.Type) {
	case models.MessageTypeText:
		payload := dto.TextPayload{Text: strings.TrimSpace(s.sanitizer.Sanitize(req.Text))}
		if err := s.validator.Struct(payload); err != nil {
			return nil, validationError(err)
		}
		return models.TextContent{Text: payload.Text}, nil
	case models.MessageTypeVoice:
		payload := dto.VoicePayload{AudioURL: strings.TrimSpace(req.AudioURL), Duration: req.Duration}
		if err := s.validator.Struct(payload); err != nil {
			return nil, validationError(err)
		}
		return models.VoiceContent{AudioURL: payload.AudioURL, Duration: payload.Duration}, nil
	case models.MessageTypeFile:
		payload := dto.FilePayload{
			FileURL:  strings.TrimSpace(req.FileURL),
			FileName: strings.TrimSpace(s.sanitizer.Sanitize(req.FileName)),
			FileSize: req.FileSize,
		}
		if err := s.validator.Struct(payload); err != nil {
			return nil, validationError(err)
		}
		return models.FileContent{FileURL: payload.FileURL, FileName: payload.FileName, FileSize: payload.FileSize}, nil
	case models.MessageTypeImage:
		payload := dto.ImagePayload{ImageURL: strings.TrimSpace(req.ImageURL), Width: req.Width, Height: req.Height}
		if err := s.validator.Struct(payload); err != nil {
			return nil, validationError(err)
		}
		return models.ImageContent{ImageURL: payload.ImageURL, Width: payload.Width, Height: payload.Height}, nil
	default:
		return nil, fieldError("unknown message type %q", req.Type)
	}
}

func (s *chatService) loadChat(ctx context.Context, actor Actor, chatID uint) (models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Chat{}, ErrChatNotFound
		}
		return models.Chat{}, err
	}
	if !chat.HasParticipant(actor.ID) {
		return models.Chat{}, ErrChatForbidden
	}
	return chat, nil
}

func (s *chatService) loadMessage(ctx context.Context, actor Actor, messageID uint) (models.Message, error) {
	message, err := s.chats.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Message{}, ErrMessageNotFound
		}
		return models.Message{}, err
	}
	if _, err := s.loadChat(ctx, actor, message.ChatID); err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (s *chatService) withMessages(ctx context.Context, chat models.Chat) (dto.ChatResponse, error) {
	messages, err := s.chats.ListMessages(ctx, chat.ID, time.Time{}, chatPreviewSize)
	if err != nil {
		return dto.ChatResponse{}, err
	}
	resp := dto.NewChatResponse(chat)
	resp.Messages = s.toResponses(messages)
	return resp, nil
}

// toResponses drops messages whose type tag is unknown instead of failing the whole read.
func (s *chatService) toResponses(messages []models.Message) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp, err := dto.NewMessageResponse(message)
		if err != nil {
			s.logger.Warn().Err(err).Uint("message_id", message.ID).Str("type", string(message.Type)).Msg("skipping undecodable message")
			continue
		}
		out = append(out, resp)
	}
	return out
}

func (s *chatService) toResponse(message models.Message) (dto.MessageResponse, error) {
	resp, err := dto.NewMessageResponse(message)
	if err != nil {
		s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("undecodable message requested")
		if errors.Is(err, models.ErrUnknownMessageType) {
			return dto.MessageResponse{}, ErrMessageNotFound
		}
		return dto.MessageResponse{}, err
	}
	return resp, nil
}

func (s *chatService) latest(ctx context.Context, chatID uint) (*dto.MessageResponse, error) {
	if cached := s.cachedLast(ctx, chatID); cached != nil {
		return cached, nil
	}

	message, err := s.chats.LatestMessage(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	resp, err := dto.NewMessageResponse(message)
	if err != nil {
		s.logger.Warn().Err(err).Uint("message_id", message.ID).Msg("latest message is undecodable")
		return nil, nil
	}
	s.cacheLast(ctx, resp)
	return &resp, nil
}

func (s *chatService) lastKey(chatID uint) string {
	return fmt.Sprintf("%s:%d", s.cacheKey, chatID)
}

func (s *chatService) cacheLast(ctx context.Context, message dto.MessageResponse) {
	if s.redis == nil || s.cacheKey == "" {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal chat message for cache")
		return
	}
	if err := s.redis.Set(ctx, s.lastKey(message.ChatID), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache chat message")
	}
}

func (s *chatService) cachedLast(ctx context.Context, chatID uint) *dto.MessageResponse {
	if s.redis == nil || s.cacheKey == "" {
		return nil
	}

	result, err := s.redis.Get(ctx, s.lastKey(chatID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Uint("chat_id", chatID).Msg("failed to read chat cache")
		}
		return nil
	}

	var message dto.MessageResponse
	if err := json.Unmarshal([]byte(result), &message); err != nil {
		s.logger.Warn().Err(err).Msg("failed to unmarshal cached chat message")
		return nil
	}
	return &message
}

func (s *chatService) invalidate(ctx context.Context, chatID uint) {
	if s.redis == nil || s.cacheKey == "" {
		return
	}
	if err := s.redis.Del(ctx, s.lastKey(chatID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("chat_id", chatID).Msg("failed to invalidate chat cache")
	}
}

func (s *chatService) publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
