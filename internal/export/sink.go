// Package export writes end-of-run tables to a filesystem directory or an
// S3-compatible bucket.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrTarget marks an export target that cannot be parsed.
var ErrTarget = errors.New("export: invalid target")

// Sink stores named objects.
type Sink interface {
	Put(ctx context.Context, key string, r io.ReadSeeker, contentType string) error
}

// sanitizeKey keeps keys relative and inside the sink root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrTarget)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: key %q escapes the root", ErrTarget, key)
	}
	return path.Clean(filepath.ToSlash(key)), nil
}

// FS writes objects as files under a root directory.
type FS struct {
	root string
}

// NewFS creates root when missing.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

// Root returns the directory objects are written to.
func (s *FS) Root() string { return s.root }

func (s *FS) Put(_ context.Context, key string, r io.ReadSeeker, _ string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	p := filepath.Join(s.root, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// S3Config holds the construction parameters of an S3 sink. Credentials
// fall back to the default chain when the keys are empty.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3 writes objects under a prefix of one bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 builds an S3 sink.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket required", ErrTarget)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("export: aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})
	return &S3{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Key returns the object key of name under the sink prefix.
func (s *S3) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3) Put(ctx context.Context, key string, r io.ReadSeeker, contentType string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(s.Key(k)), Body: r}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.Key(k), err)
	}
	return nil
}

// Open parses a target: "fs:<dir>" or "s3://bucket/prefix". S3 endpoint,
// region and path style come from MIXCROP_S3_ENDPOINT, MIXCROP_S3_REGION
// and MIXCROP_S3_PATH_STYLE.
func Open(ctx context.Context, target string) (Sink, error) {
	switch {
	case strings.HasPrefix(target, "fs:"):
		return NewFS(strings.TrimPrefix(target, "fs:"))
	case strings.HasPrefix(target, "s3://"):
		rest := strings.TrimPrefix(target, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		return NewS3(ctx, S3Config{
			Bucket:    bucket,
			Prefix:    prefix,
			Region:    os.Getenv("MIXCROP_S3_REGION"),
			Endpoint:  os.Getenv("MIXCROP_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("MIXCROP_S3_PATH_STYLE"), "true"),
		})
	}
	return nil, fmt.Errorf("%w: %q", ErrTarget, target)
}
