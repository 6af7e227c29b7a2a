package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ChatRepository persists two-party chats and their messages.
type ChatRepository interface {
	FindByParticipants(ctx context.Context, a, b uint) (models.Chat, error)
	FindOrCreate(ctx context.Context, chat *models.Chat) (bool, error)
	GetByID(ctx context.Context, id uint) (models.Chat, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Chat, error)
	SaveMessage(ctx context.Context, message *models.Message) error
	GetMessage(ctx context.Context, id uint) (models.Message, error)
	UpdateMessage(ctx context.Context, message *models.Message) error
	DeleteMessage(ctx context.Context, id uint) error
	ListMessages(ctx context.Context, chatID uint, before time.Time, limit int) ([]models.Message, error)
	LatestMessage(ctx context.Context, chatID uint) (models.Message, error)
	CountUnread(ctx context.Context, chatID, userID uint) (int64, error)
	MarkAllRead(ctx context.Context, chatID, userID uint) (int64, error)
	MarkRead(ctx context.Context, messageID uint) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository constructs a chat repository backed by GORM.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// FindByParticipants is symmetric: (a, b) and (b, a) resolve to the same chat.
func (r *chatRepository) FindByParticipants(ctx context.Context, a, b uint) (models.Chat, error) {
	low, high := models.ParticipantPair(a, b)
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("participant_low = ? AND participant_high = ?", low, high).
		First(&chat).Error
	return chat, err
}

// FindOrCreate loads the chat of the pair or inserts the given one. A concurrent
// insert of the same pair loses on the unique index and re-reads the winner.
func (r *chatRepository) FindOrCreate(ctx context.Context, chat *models.Chat) (bool, error) {
	chat.ParticipantLow, chat.ParticipantHigh = models.ParticipantPair(chat.InitiatorID, chat.RecipientID)

	existing, err := r.FindByParticipants(ctx, chat.InitiatorID, chat.RecipientID)
	if err == nil {
		*chat = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, err
		}
		existing, err = r.FindByParticipants(ctx, chat.InitiatorID, chat.RecipientID)
		if err != nil {
			return false, err
		}
		*chat = existing
		return false, nil
	}
	return true, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id uint) (models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).First(&chat, id).Error
	return chat, err
}

func (r *chatRepository) ListForUser(ctx context.Context, userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Where("initiator_id = ? OR recipient_id = ?", userID, userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&chats).Error
	return chats, err
}

// SaveMessage appends the message and touches the chat so recent chats sort first.
func (r *chatRepository) SaveMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", message.ChatID).
			Update("updated_at", message.SentAt).Error
	})
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).First(&message, id).Error
	return message, err
}

func (r *chatRepository) UpdateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Save(message).Error
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, chatID uint, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if !before.IsZero() {
		query = query.Where("sent_at < ?", before)
	}

	var messages []models.Message
	if err := query.Order("sent_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Reverse to chronological order ascending for clients.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) LatestMessage(ctx context.Context, chatID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sent_at DESC").
		Order("id DESC").
		First(&message).Error
	return message, err
}

func (r *chatRepository) CountUnread(ctx context.Context, chatID, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Count(&count).Error
	return count, err
}

// MarkAllRead flips every unread message of the chat not sent by userID.
func (r *chatRepository) MarkAllRead(ctx context.Context, chatID, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *chatRepository) MarkRead(ctx context.Context, messageID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error
}
