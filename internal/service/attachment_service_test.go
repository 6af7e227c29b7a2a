package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medlink-api/internal/dto"
	"github.com/noah-isme/medlink-api/internal/models"
	"github.com/noah-isme/medlink-api/internal/validation"
)

type memoryStorage struct {
	names   []string
	sizes   []int
	deleted []string
}

func (s *memoryStorage) Upload(_ context.Context, name string, reader io.Reader) (string, string, error) {
	payload, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}
	s.names = append(s.names, name)
	s.sizes = append(s.sizes, len(payload))
	return "https://files.example.com/" + name, "raw:" + name, nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

// failingChats lets the storage step succeed and the message step fail.
type failingChats struct {
	ChatService
}

func (failingChats) Append(context.Context, Actor, uint, models.MessageContent) (dto.MessageResponse, error) {
	return dto.MessageResponse{}, errors.New("database gone")
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(4 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

var pngHeader = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xDE,
}

func attachmentFixture(t *testing.T) (*marketplace, *memoryStorage, AttachmentService, Actor, Actor, uint) {
	t.Helper()
	m := newMarketplace(t)
	storage := &memoryStorage{}
	svc := NewAttachmentService(storage, m.chatRepo, m.chats, 1, validation.New(), testLogger())

	patient := m.register(t, models.RolePatient, "pat_attach")
	specialist := m.register(t, models.RoleSpecialist, "spec_attach")
	chat, _, err := m.chats.Open(context.Background(), patient, dto.ChatCreateRequest{RecipientID: specialist.ID})
	require.NoError(t, err)
	return m, storage, svc, patient, specialist, chat.ID
}

func TestAttachmentWithoutStorage(t *testing.T) {
	m := newMarketplace(t)
	svc := NewAttachmentService(nil, m.chatRepo, m.chats, 1, validation.New(), testLogger())

	_, err := svc.Upload(context.Background(), Actor{ID: 1, Role: models.RolePatient}, 1, fileHeader(t, "x.png", pngHeader), dto.AttachmentRequest{})
	require.ErrorIs(t, err, ErrStorageNotConfigured)
}

func TestAttachmentImageNeedsDimensions(t *testing.T) {
	m, storage, svc, patient, specialist, chatID := attachmentFixture(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, patient, chatID, fileHeader(t, "X-Ray Scan.PNG", pngHeader), dto.AttachmentRequest{})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, storage.names)

	message, err := svc.Upload(ctx, patient, chatID, fileHeader(t, "X-Ray Scan.PNG", pngHeader), dto.AttachmentRequest{Width: 1, Height: 1})
	require.NoError(t, err)
	require.Equal(t, "image", message.Type)
	require.Equal(t, "https://files.example.com/x-ray-scan.png", message.ImageURL)
	require.Equal(t, []string{"x-ray-scan.png"}, storage.names)

	unread, err := m.chats.Unread(ctx, specialist, chatID)
	require.NoError(t, err)
	require.Equal(t, int64(1), unread.Count)
}

func TestAttachmentDocumentBecomesFileMessage(t *testing.T) {
	_, storage, svc, patient, _, chatID := attachmentFixture(t)

	pdf := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")
	message, err := svc.Upload(context.Background(), patient, chatID, fileHeader(t, "lab results.pdf", pdf), dto.AttachmentRequest{})
	require.NoError(t, err)
	require.Equal(t, "file", message.Type)
	require.Equal(t, "lab-results.pdf", message.FileName)
	require.Equal(t, int64(len(pdf)), message.FileSize)
	require.Equal(t, []int{len(pdf)}, storage.sizes)
}

func TestAttachmentRejections(t *testing.T) {
	m, storage, svc, patient, _, chatID := attachmentFixture(t)
	ctx := context.Background()
	outsider := m.register(t, models.RolePatient, "pat_attach_out")

	_, err := svc.Upload(ctx, outsider, chatID, fileHeader(t, "x.png", pngHeader), dto.AttachmentRequest{Width: 1, Height: 1})
	require.ErrorIs(t, err, ErrChatForbidden)

	_, err = svc.Upload(ctx, patient, chatID, fileHeader(t, "blob.bin", []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE}), dto.AttachmentRequest{})
	require.ErrorIs(t, err, ErrAttachmentType)

	big := bytes.Repeat([]byte{0x00}, 1<<20+1)
	_, err = svc.Upload(ctx, patient, chatID, fileHeader(t, "big.pdf", big), dto.AttachmentRequest{})
	require.ErrorIs(t, err, ErrAttachmentTooLarge)

	_, err = svc.Upload(ctx, patient, 999, fileHeader(t, "x.png", pngHeader), dto.AttachmentRequest{Width: 1, Height: 1})
	require.ErrorIs(t, err, ErrChatNotFound)

	require.Empty(t, storage.names)
}

func TestSanitizeFileName(t *testing.T) {
	require.Equal(t, "report-2024.pdf", sanitizeFileName("Report 2024.PDF"))
	require.Equal(t, "scan_v2.png", sanitizeFileName("scan_v2.png"))
	require.Equal(t, "x.bin", sanitizeFileName("x"))
	require.Contains(t, sanitizeFileName("???.txt"), "attachment-")
}

func TestAttachmentRemovedWhenMessageFails(t *testing.T) {
	m, storage, _, patient, _, chatID := attachmentFixture(t)
	svc := NewAttachmentService(storage, m.chatRepo, failingChats{ChatService: m.chats}, 1, validation.New(), testLogger())

	_, err := svc.Upload(context.Background(), patient, chatID, fileHeader(t, "scan.png", pngHeader), dto.AttachmentRequest{Width: 1, Height: 1})
	require.EqualError(t, err, "database gone")
	require.Equal(t, []string{"scan.png"}, storage.names)
	require.Equal(t, []string{"raw:scan.png"}, storage.deleted)
}
