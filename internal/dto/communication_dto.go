package dto

import (
	"time"

	"github.com/noah-isme/medlink-api/internal/models"
)

// ChatCreateRequest opens (or finds) the chat with a recipient.
type ChatCreateRequest struct {
	RecipientID uint  `json:"recipient_id" validate:"required,gt=0"`
	OrderID     *uint `json:"order_id" validate:"omitempty,gt=0"`
	ResponseID  *uint `json:"response_id" validate:"omitempty,gt=0"`
}

// TextToRecipientRequest sends a text message, creating the chat if needed.
type TextToRecipientRequest struct {
	RecipientID uint   `json:"recipient_id" validate:"required,gt=0"`
	Text        string `json:"text" validate:"required,notblank,max=2000"`
}

// MessageCreateRequest carries one message of any variant. Only the fields of
// the selected type are read.
type MessageCreateRequest struct {
	Type     string  `json:"type" validate:"required,oneof=text voice file image"`
	Text     string  `json:"text"`
	AudioURL string  `json:"audio_url"`
	Duration float64 `json:"duration"`
	FileURL  string  `json:"file_url"`
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size"`
	ImageURL string  `json:"image_url"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// TextPayload validates a text message body.
type TextPayload struct {
	Text string `json:"text" validate:"required,notblank,max=2000"`
}

// VoicePayload validates a voice message.
type VoicePayload struct {
	AudioURL string  `json:"audio_url" validate:"required,http_url,max=1024"`
	Duration float64 `json:"duration" validate:"gt=0,lte=300"`
}

// FilePayload validates a file message.
type FilePayload struct {
	FileURL  string `json:"file_url" validate:"required,http_url,max=1024"`
	FileName string `json:"file_name" validate:"required,notblank,max=255"`
	FileSize int64  `json:"file_size" validate:"gt=0"`
}

// ImagePayload validates an image message.
type ImagePayload struct {
	ImageURL string `json:"image_url" validate:"required,http_url,max=1024"`
	Width    int    `json:"width" validate:"gt=0"`
	Height   int    `json:"height" validate:"gt=0"`
}

// MessageUpdateRequest edits a text message in place.
type MessageUpdateRequest struct {
	Text string `json:"text" validate:"required,notblank,max=2000"`
}

// ChatHistoryQuery pages backwards through a chat.
type ChatHistoryQuery struct {
	Before *time.Time `query:"before"`
	Limit  int        `query:"limit" validate:"omitempty,min=1,max=100"`
}

// AttachmentRequest carries the metadata sent next to an uploaded file.
type AttachmentRequest struct {
	Duration float64 `validate:"omitempty,gt=0,lte=300"`
	Width    int     `validate:"omitempty,gt=0"`
	Height   int     `validate:"omitempty,gt=0"`
}

// MessageResponse is the flattened view of every message variant.
type MessageResponse struct {
	ID       uint       `json:"id"`
	ChatID   uint       `json:"chat_id"`
	SenderID uint       `json:"sender_id"`
	Type     string     `json:"type"`
	IsRead   bool       `json:"is_read"`
	SentAt   time.Time  `json:"sent_at"`
	EditedAt *time.Time `json:"edited_at,omitempty"`
	Text     string     `json:"text,omitempty"`
	AudioURL string     `json:"audio_url,omitempty"`
	Duration float64    `json:"duration,omitempty"`
	FileURL  string     `json:"file_url,omitempty"`
	FileName string     `json:"file_name,omitempty"`
	FileSize int64      `json:"file_size,omitempty"`
	ImageURL string     `json:"image_url,omitempty"`
	Width    int        `json:"width,omitempty"`
	Height   int        `json:"height,omitempty"`
}

// NewMessageResponse decodes the stored variant. It fails with
// models.ErrUnknownMessageType for type tags outside the known set.
func NewMessageResponse(message models.Message) (MessageResponse, error) {
	content, err := message.Decode()
	if err != nil {
		return MessageResponse{}, err
	}

	resp := MessageResponse{
		ID:       message.ID,
		ChatID:   message.ChatID,
		SenderID: message.SenderID,
		Type:     string(message.Type),
		IsRead:   message.IsRead,
		SentAt:   message.SentAt,
		EditedAt: message.EditedAt,
	}

	switch v := content.(type) {
	case models.TextContent:
		resp.Text = v.Text
	case models.VoiceContent:
		resp.AudioURL = v.AudioURL
		resp.Duration = v.Duration
	case models.FileContent:
		resp.FileURL = v.FileURL
		resp.FileName = v.FileName
		resp.FileSize = v.FileSize
	case models.ImageContent:
		resp.ImageURL = v.ImageURL
		resp.Width = v.Width
		resp.Height = v.Height
	}

	return resp, nil
}

// ChatResponse serializes a chat, optionally with its messages.
type ChatResponse struct {
	ID          uint              `json:"id"`
	InitiatorID uint              `json:"initiator_id"`
	RecipientID uint              `json:"recipient_id"`
	OrderID     *uint             `json:"order_id"`
	ResponseID  *uint             `json:"response_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Messages    []MessageResponse `json:"messages,omitempty"`
}

// NewChatResponse converts a chat without its messages.
func NewChatResponse(chat models.Chat) ChatResponse {
	return ChatResponse{
		ID:          chat.ID,
		InitiatorID: chat.InitiatorID,
		RecipientID: chat.RecipientID,
		OrderID:     chat.OrderID,
		ResponseID:  chat.ResponseID,
		CreatedAt:   chat.CreatedAt,
		UpdatedAt:   chat.UpdatedAt,
	}
}

// ChatSummaryResponse is one entry of the caller's chat list.
type ChatSummaryResponse struct {
	ChatResponse
	PeerID      uint             `json:"peer_id"`
	UnreadCount int64            `json:"unread_count"`
	LastMessage *MessageResponse `json:"last_message,omitempty"`
}

// UnreadResponse reports unread counts.
type UnreadResponse struct {
	ChatID uint  `json:"chat_id"`
	Count  int64 `json:"count"`
}

// MarkReadResponse reports how many messages were flipped to read.
type MarkReadResponse struct {
	ChatID  uint  `json:"chat_id"`
	Updated int64 `json:"updated"`
}
