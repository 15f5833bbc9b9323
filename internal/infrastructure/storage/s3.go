package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	trackingapp "github.com/trackd/backend/internal/application/tracking"
	infraconfig "github.com/trackd/backend/internal/infrastructure/config"
)

// Ensure S3ImageStore implements ImageStore
var _ trackingapp.ImageStore = (*S3ImageStore)(nil)

// S3ImageStore keeps package images in an S3-compatible bucket (AWS S3,
// MinIO, RustFS, etc.). Stored paths are absolute URLs built from the
// configured public base so records stay valid across restarts.
type S3ImageStore struct {
	client     *s3.Client
	bucket     string
	keyPrefix  string
	publicBase string
	logger     *zap.Logger
	now        func() time.Time
}

// NewS3ImageStore creates an S3ImageStore from configuration.
func NewS3ImageStore(cfg *infraconfig.StorageConfig, logger *zap.Logger) (*S3ImageStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("storage credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	publicBase := strings.TrimRight(cfg.PublicBase, "/")
	if publicBase == "" {
		publicBase = strings.TrimRight(endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3ImageStore{
		client:     client,
		bucket:     cfg.Bucket,
		keyPrefix:  strings.Trim(cfg.PublicPrefix, "/"),
		publicBase: publicBase,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Save uploads data to the bucket and returns its public URL.
func (s *S3ImageStore) Save(ctx context.Context, data []byte, originalName string) (string, error) {
	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), sanitizeFilename(originalName))
	key := path.Join(s.keyPrefix, name)

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	s.logger.Debug("Image uploaded",
		zap.String("key", key),
		zap.Int("bytes", len(data)))
	return s.publicBase + "/" + key, nil
}

// Delete removes a previously stored image. Unmanaged URLs are ignored.
func (s *S3ImageStore) Delete(ctx context.Context, storedPath string) error {
	if !s.Managed(storedPath) {
		return nil
	}
	key := strings.TrimPrefix(strings.TrimPrefix(storedPath, s.publicBase), "/")
	if key == "" {
		return fmt.Errorf("refusing to delete %q: no object key", storedPath)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Managed reports whether storedPath is a URL served from this bucket.
func (s *S3ImageStore) Managed(storedPath string) bool {
	return strings.HasPrefix(storedPath, s.publicBase+"/")
}
