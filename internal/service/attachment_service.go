package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/repository"
)

var documentTypes = map[string]struct{}{
	"application/pdf":                                                           {},
	"text/plain":                                                                {},
	"application/zip":                                                           {},
	"application/msword":                                                        {},
	"application/vnd.ms-excel":                                                  {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
}

// FileStorage abstracts upload destinations. Upload returns the public URL and
// the key Delete expects.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (url string, key string, err error)
	Delete(ctx context.Context, key string) error
}

// AttachmentService turns an uploaded file into a voice, image or file message.
type AttachmentService interface {
	Upload(ctx context.Context, actor Actor, chatID uint, file *multipart.FileHeader, meta dto.AttachmentRequest) (dto.MessageResponse, error)
}

type attachmentService struct {
	storage   FileStorage
	chatRepo  repository.ChatRepository
	chats     ChatService
	validator *validator.Validate
	logger    zerolog.Logger
	maxSize   int64
	tracer    trace.Tracer
}

// NewAttachmentService constructs the attachment flow. A nil storage disables uploads.
func NewAttachmentService(storage FileStorage, chatRepo repository.ChatRepository, chats ChatService, maxSizeMB int, validate *validator.Validate, logger zerolog.Logger) AttachmentService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &attachmentService{
		storage:   storage,
		chatRepo:  chatRepo,
		chats:     chats,
		validator: validate,
		logger:    logger.With().Str("component", "attachment_service").Logger(),
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		tracer:    otel.Tracer("github.com/noah-isme/medlink-api/internal/service/attachment"),
	}
}

func (s *attachmentService) Upload(ctx context.Context, actor Actor, chatID uint, file *multipart.FileHeader, meta dto.AttachmentRequest) (dto.MessageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "chat.attachment")
	span.SetAttributes(
		attribute.Int64("chat.id", int64(chatID)),
		attribute.Int64("upload.max_bytes", s.maxSize),
	)
	defer span.End()

	if s.storage == nil {
		return dto.MessageResponse{}, ErrStorageNotConfigured
	}
	if err := s.validator.Struct(meta); err != nil {
		return dto.MessageResponse{}, validationError(err)
	}
	if file == nil {
		return dto.MessageResponse{}, fieldError("file is required")
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)
	if file.Size > s.maxSize {
		span.SetStatus(codes.Error, "payload too large")
		return dto.MessageResponse{}, ErrAttachmentTooLarge
	}

	if err := s.requireParticipant(ctx, actor, chatID); err != nil {
		return dto.MessageResponse{}, err
	}

	payload, err := s.read(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.MessageResponse{}, err
	}

	kind, mime, err := classify(payload)
	if err != nil {
		span.SetStatus(codes.Error, "type not allowed")
		return dto.MessageResponse{}, err
	}
	span.SetAttributes(attribute.String("upload.detected_mime", mime))

	if kind == models.MessageTypeFile {
		if err := s.scan(payload, mime); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			return dto.MessageResponse{}, err
		}
	}
	if err := requireMeta(kind, meta); err != nil {
		return dto.MessageResponse{}, err
	}

	name := sanitizeFileName(file.Filename)
	url, key, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.MessageResponse{}, err
	}

	var content models.MessageContent
	switch kind {
	case models.MessageTypeImage:
		content = models.ImageContent{ImageURL: url, Width: meta.Width, Height: meta.Height}
	case models.MessageTypeVoice:
		content = models.VoiceContent{AudioURL: url, Duration: meta.Duration}
	default:
		content = models.FileContent{FileURL: url, FileName: name, FileSize: int64(len(payload))}
	}

	message, err := s.chats.Append(ctx, actor, chatID, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		// The asset would otherwise be orphaned in storage.
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned attachment")
		}
		return dto.MessageResponse{}, err
	}

	s.logger.Info().
		Uint("chat_id", chatID).
		Uint("message_id", message.ID).
		Str("mime", mime).
		Int("size", len(payload)).
		Msg("attachment stored")
	return message, nil
}

func (s *attachmentService) requireParticipant(ctx context.Context, actor Actor, chatID uint) error {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	if !chat.HasParticipant(actor.ID) {
		return ErrChatForbidden
	}
	return nil
}

func (s *attachmentService) read(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxSize {
		return nil, ErrAttachmentTooLarge
	}
	if buf.Len() == 0 {
		return nil, fieldError("file is empty")
	}
	return buf.Bytes(), nil
}

// scan rejects zip archives that would expand far beyond the upload limit.
func (s *attachmentService) scan(payload []byte, mime string) error {
	if !strings.Contains(mime, "zip") && !strings.Contains(mime, "openxmlformats") {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return kindError(ErrValidation, "archive could not be read")
	}
	var total uint64
	for _, f := range reader.File {
		total += f.UncompressedSize64
		if total > uint64(s.maxSize*20) {
			return kindError(ErrValidation, "archive uncompressed size too large")
		}
	}
	return nil
}

// classify maps the sniffed content type onto a message variant.
func classify(payload []byte) (models.MessageType, string, error) {
	detected := mimetype.Detect(payload)
	mime := strings.ToLower(strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0]))

	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.MessageTypeImage, mime, nil
	case strings.HasPrefix(mime, "audio/"):
		return models.MessageTypeVoice, mime, nil
	}
	for m := detected; m != nil; m = m.Parent() {
		base := strings.SplitN(m.String(), ";", 2)[0]
		if _, ok := documentTypes[base]; ok {
			return models.MessageTypeFile, mime, nil
		}
	}
	return "", mime, fmt.Errorf("%w: %s", ErrAttachmentType, mime)
}

func requireMeta(kind models.MessageType, meta dto.AttachmentRequest) error {
	switch kind {
	case models.MessageTypeVoice:
		if meta.Duration <= 0 {
			return fieldError("duration is required for voice attachments")
		}
	case models.MessageTypeImage:
		if meta.Width <= 0 || meta.Height <= 0 {
			return fieldError("width and height are required for image attachments")
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("attachment-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
