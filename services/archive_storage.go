package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feature_catalogue_app_go/config"
	"feature_catalogue_app_go/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveStore keeps off-database copies of superseded catalogue generations
type ArchiveStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (*ArchiveObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
}

// ArchiveObject describes a stored copy
type ArchiveObject struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

// Archive is the global archive store. Nil disables off-database copies.
var Archive ArchiveStore

// InitializeArchive selects R2 when it is fully configured and reachable,
// otherwise a local directory, otherwise nothing.
func InitializeArchive(cfg *config.Config) {
	log := logger.L()

	if cfg.R2AccountID != "" && cfg.R2AccessKeyID != "" && cfg.R2SecretAccessKey != "" && cfg.R2BucketName != "" {
		r2, err := NewR2Archive(cfg)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, err = r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.R2BucketName)})
		}
		if err == nil {
			Archive = r2
			log.Infow("archive store ready", "backend", r2.Name(), "bucket", cfg.R2BucketName)
			return
		}
		log.Warnw("R2 archive unavailable, falling back", "error", err)
	}

	if cfg.ArchiveDir != "" {
		Archive = NewLocalArchive(cfg.ArchiveDir)
		log.Infow("archive store ready", "backend", "local", "path", cfg.ArchiveDir)
		return
	}

	Archive = nil
	log.Infow("archive store disabled")
}

// R2Archive stores archive copies in a Cloudflare R2 bucket
type R2Archive struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewR2Archive creates an R2 archive client
func NewR2Archive(cfg *config.Config) (*R2Archive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Archive{client: client, bucket: cfg.R2BucketName, publicURL: cfg.R2PublicURL}, nil
}

func (r *R2Archive) Name() string { return "r2" }

// Put uploads an archive copy
func (r *R2Archive) Put(ctx context.Context, key string, body []byte, contentType string) (*ArchiveObject, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to R2: %w", err)
	}

	obj := &ArchiveObject{Key: key, Size: int64(len(body))}
	if r.publicURL != "" {
		obj.URL = fmt.Sprintf("%s/%s", strings.TrimSuffix(r.publicURL, "/"), key)
	}
	return obj, nil
}

// Get downloads an archive copy
func (r *R2Archive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from R2: %w", err)
	}
	return out.Body, nil
}

// LocalArchive stores archive copies under a directory
type LocalArchive struct {
	baseDir string
}

// NewLocalArchive creates a local archive rooted at baseDir
func NewLocalArchive(baseDir string) *LocalArchive {
	return &LocalArchive{baseDir: baseDir}
}

func (l *LocalArchive) Name() string { return "local" }

// Put writes an archive copy to disk
func (l *LocalArchive) Put(ctx context.Context, key string, body []byte, contentType string) (*ArchiveObject, error) {
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, body, 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	return &ArchiveObject{Key: key, Size: int64(len(body))}, nil
}

// Get opens an archive copy from disk
func (l *LocalArchive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.baseDir, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// LegacySetArchiveKey is the storage key of a legacy set's JSON copy
func LegacySetArchiveKey(setID string) string {
	return fmt.Sprintf("legacy-feature-sets/%s.json", setID)
}
