package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Storage keeps chat attachments in a Cloudinary folder.
type Storage struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New validates the credentials and builds the client.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Storage{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the file and returns its secure URL together with the key
// Delete accepts.
func (s *Storage) Upload(ctx context.Context, name string, reader io.Reader) (string, string, error) {
	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     PublicID(name),
		ResourceType: "auto",
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	s.logger.Info().
		Str("public_id", result.PublicID).
		Str("resource_type", result.ResourceType).
		Int("bytes", result.Bytes).
		Msg("attachment uploaded")

	return result.SecureURL, assetKey(result.ResourceType, result.PublicID), nil
}

// Delete destroys an asset previously returned by Upload. Missing assets are
// not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	resourceType, publicID, err := parseAssetKey(key)
	if err != nil {
		return err
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected delete: %s", result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("unexpected cloudinary delete result %q", result.Result)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("attachment deleted")
	return nil
}

func assetKey(resourceType, publicID string) string {
	if resourceType == "" {
		resourceType = "image"
	}
	return resourceType + ":" + publicID
}

func parseAssetKey(key string) (string, string, error) {
	resourceType, publicID, ok := strings.Cut(key, ":")
	if !ok || resourceType == "" || publicID == "" {
		return "", "", fmt.Errorf("malformed asset key %q", key)
	}
	return resourceType, publicID, nil
}

// PublicID derives a collision-free public id from a file name, keeping a
// readable slug of the original name in front of a random suffix.
func PublicID(name string) string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	var slug strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
		default:
			slug.WriteByte('-')
		}
	}

	base := strings.Trim(slug.String(), "-")
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}
	if base == "" {
		return uuid.NewString()
	}
	return base + "-" + uuid.NewString()
}
