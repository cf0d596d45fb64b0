package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/hearth/internal/policy"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Enabled reports whether the blob store has usable credentials.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Store uploads task photos to S3-compatible storage behind the
// family-membership policy.
type Store struct {
	cfg    Config
	client s3Client
	snap   policy.Snapshot
	logger *slog.Logger
}

// NewStore creates a blob store. snap provides the family lookups the
// upload policy needs.
func NewStore(cfg Config, snap policy.Snapshot, logger *slog.Logger) *Store {
	s := &Store{cfg: cfg, snap: snap, logger: logger}
	if cfg.Enabled() {
		s.client = newS3Client(cfg)
	}
	return s
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Upload streams one photo to the bucket after the policy check.
func (s *Store) Upload(ctx context.Context, p policy.Principal, key string, body io.Reader, contentType string) (string, error) {
	path, err := ParsePath(key)
	if err != nil {
		return "", err
	}
	if err := Authorize(p, path, s.snap); err != nil {
		return "", err
	}
	if s.client == nil {
		return "", fmt.Errorf("blob storage not configured")
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(path.String()),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	s.logger.Info("photo uploaded", "key", path.String(), "uid", p.UID)
	return path.String(), nil
}

// Fetch streams one photo back, under the same membership policy as upload.
func (s *Store) Fetch(ctx context.Context, p policy.Principal, key string) (io.ReadCloser, error) {
	path, err := ParsePath(key)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, path, s.snap); err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, fmt.Errorf("blob storage not configured")
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes a photo; only a validator-capable principal or the system
// may delete.
func (s *Store) Delete(ctx context.Context, p policy.Principal, key string) error {
	path, err := ParsePath(key)
	if err != nil {
		return err
	}
	if err := Authorize(p, path, s.snap); err != nil {
		return err
	}
	if !p.System && !p.Role.CanValidatePhotos() {
		return fmt.Errorf("%w: only a parent may delete photos", policy.ErrDenied)
	}
	if s.client == nil {
		return fmt.Errorf("blob storage not configured")
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(path.String()),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
