package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ErrUnknownMessageType is returned when a stored message carries a type tag outside the known set.
var ErrUnknownMessageType = errors.New("unknown message type")

// MessageType is the discriminator of the message variants.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeVoice MessageType = "voice"
	MessageTypeFile  MessageType = "file"
	MessageTypeImage MessageType = "image"
)

// Chat is a two-party conversation. ParticipantLow/High hold the sorted pair so that
// (A,B) and (B,A) collide on the same unique index.
type Chat struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InitiatorID     uint      `gorm:"not null;index" json:"initiator_id"`
	RecipientID     uint      `gorm:"not null;index" json:"recipient_id"`
	ParticipantLow  uint      `gorm:"not null;uniqueIndex:idx_chats_participants" json:"-"`
	ParticipantHigh uint      `gorm:"not null;uniqueIndex:idx_chats_participants" json:"-"`
	OrderID         *uint     `gorm:"index" json:"order_id"`
	ResponseID      *uint     `gorm:"index" json:"response_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Messages        []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// ParticipantPair returns the pair in canonical (low, high) order.
func ParticipantPair(a, b uint) (uint, uint) {
	if a <= b {
		return a, b
	}
	return b, a
}

// HasParticipant reports whether the user takes part in the chat.
func (c Chat) HasParticipant(userID uint) bool {
	return c.InitiatorID == userID || c.RecipientID == userID
}

// Peer returns the other participant of the chat.
func (c Chat) Peer(userID uint) uint {
	if c.InitiatorID == userID {
		return c.RecipientID
	}
	return c.InitiatorID
}

// Message is the stored form of every message variant. Content carries the variant payload as JSON.
type Message struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ChatID    uint           `gorm:"not null;index:idx_messages_chat_sent" json:"chat_id"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Type      MessageType    `gorm:"size:16;not null" json:"type"`
	Content   datatypes.JSON `gorm:"type:json" json:"content"`
	IsRead    bool           `gorm:"not null;default:false;index" json:"is_read"`
	SentAt    time.Time      `gorm:"not null;index:idx_messages_chat_sent" json:"sent_at"`
	EditedAt  *time.Time     `json:"edited_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MessageContent is implemented by every message variant payload.
type MessageContent interface {
	Kind() MessageType
}

// TextContent is the payload of a text message.
type TextContent struct {
	Text string `json:"text"`
}

// VoiceContent is the payload of a voice message.
type VoiceContent struct {
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
}

// FileContent is the payload of a file message.
type FileContent struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// ImageContent is the payload of an image message.
type ImageContent struct {
	ImageURL string `json:"image_url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (TextContent) Kind() MessageType  { return MessageTypeText }
func (VoiceContent) Kind() MessageType { return MessageTypeVoice }
func (FileContent) Kind() MessageType  { return MessageTypeFile }
func (ImageContent) Kind() MessageType { return MessageTypeImage }

// NewMessage builds a stored message from a variant payload.
func NewMessage(chatID, senderID uint, content MessageContent, sentAt time.Time) (Message, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Message{}, fmt.Errorf("encode message content: %w", err)
	}
	return Message{
		ChatID:   chatID,
		SenderID: senderID,
		Type:     content.Kind(),
		Content:  datatypes.JSON(raw),
		SentAt:   sentAt,
	}, nil
}

// Decode resolves the variant payload by the type tag.
func (m Message) Decode() (MessageContent, error) {
	var content MessageContent
	switch m.Type {
	case MessageTypeText:
		content = &TextContent{}
	case MessageTypeVoice:
		content = &VoiceContent{}
	case MessageTypeFile:
		content = &FileContent{}
	case MessageTypeImage:
		content = &ImageContent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}

	if len(m.Content) > 0 {
		if err := json.Unmarshal(m.Content, content); err != nil {
			return nil, fmt.Errorf("decode %s message %d: %w", m.Type, m.ID, err)
		}
	}

	switch v := content.(type) {
	case *TextContent:
		return *v, nil
	case *VoiceContent:
		return *v, nil
	case *FileContent:
		return *v, nil
	case *ImageContent:
		return *v, nil
	}
	return content, nil
}
