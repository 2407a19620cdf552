package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

const (
	resourceTypeRaw      = "raw"
	defaultMaxFileBytes  = 32 << 20
	defaultFetchTimeout  = 30 * time.Second
	destroyResultOK      = "ok"
	destroyResultMissing = "not found"
)

// ErrFileTooLarge indicates a stored asset exceeded the download limit.
var ErrFileTooLarge = errors.New("stored file exceeds download limit")

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName    string
	APIKey       string
	APISecret    string
	Folder       string
	MaxFileBytes int64
	FetchTimeout time.Duration
}

// Service stores submission documents as raw Cloudinary assets addressed by file key.
type Service struct {
	client   *cloudinary.Cloudinary
	folder   string
	maxBytes int64
	http     *http.Client
	logger   zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaultMaxFileBytes
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	return &Service{
		client:   cld,
		folder:   strings.Trim(cfg.Folder, "/"),
		maxBytes: cfg.MaxFileBytes,
		http:     &http.Client{Timeout: cfg.FetchTimeout},
		logger:   logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the content under the given key and returns the key to persist.
func (s *Service) Upload(ctx context.Context, key string, reader io.Reader) (string, error) {
	publicID := s.publicID(key)
	overwrite := true

	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: resourceTypeRaw,
		Overwrite:    &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("file uploaded to cloudinary")

	return key, nil
}

// Download fetches the stored bytes for a file key.
func (s *Service) Download(ctx context.Context, key string) ([]byte, error) {
	url, err := s.URL(key)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download asset: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	return data, nil
}

// Delete removes the asset; a missing asset is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.publicID(key),
		ResourceType: resourceTypeRaw,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	switch result.Result {
	case destroyResultOK, destroyResultMissing:
		s.logger.Info().Str("file_key", key).Str("result", result.Result).Msg("file removed from cloudinary")
		return nil
	default:
		return fmt.Errorf("failed to delete asset: %s%s", result.Result, result.Error.Message)
	}
}

// URL returns the secure delivery URL of a file key.
func (s *Service) URL(key string) (string, error) {
	asset, err := s.client.File(s.publicID(key))
	if err != nil {
		return "", fmt.Errorf("build asset url: %w", err)
	}
	asset.Config.URL.Secure = true

	url, err := asset.String()
	if err != nil {
		return "", fmt.Errorf("build asset url: %w", err)
	}

	return url, nil
}

func (s *Service) publicID(key string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if s.folder == "" {
		return cleaned
	}
	return s.folder + "/" + cleaned
}
