package artifact

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/joseph-ayodele/docbatch/internal/common"
	"github.com/joseph-ayodele/docbatch/internal/entity"
)

const (
	SinkLocal = "local"
	SinkS3    = "s3"

	uploadTimeout = 2 * time.Minute
)

// Sink stores an exported artifact and returns where it went.
type Sink interface {
	Put(ctx context.Context, art entity.ExportArtifact) (string, error)
}

// New builds the sink selected by cfg.Sink.
func New(ctx context.Context, cfg common.ExportConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Sink {
	case SinkLocal, "":
		return NewDirSink(cfg.OutputDir, logger), nil
	case SinkS3:
		return NewS3Sink(ctx, S3Config{Bucket: cfg.S3Bucket, Region: cfg.S3Region, Prefix: cfg.S3Prefix}, logger)
	default:
		return nil, fmt.Errorf("unknown export sink %q", cfg.Sink)
	}
}

// DirSink writes artifacts into a local directory.
type DirSink struct {
	dir    string
	logger *slog.Logger
}

func NewDirSink(dir string, logger *slog.Logger) *DirSink {
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSink{dir: dir, logger: logger}
}

func (s *DirSink) Put(_ context.Context, art entity.ExportArtifact) (string, error) {
	name, err := cleanName(art.Filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	dst := filepath.Join(s.dir, name)
	if err := os.WriteFile(dst, art.Data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	s.logger.Info("artifact.local.ok", "path", dst, "bytes", len(art.Data))
	return dst, nil
}

// S3Config names the bucket artifacts are uploaded to. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads artifacts with the S3 transfer manager.
type S3Sink struct {
	up     uploader
	cfg    S3Config
	logger *slog.Logger
}

func NewS3Sink(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = awsCfg.Region
	}
	return &S3Sink{up: manager.NewUploader(s3.NewFromConfig(awsCfg)), cfg: cfg, logger: logger}, nil
}

func (s *S3Sink) Put(ctx context.Context, art entity.ExportArtifact) (string, error) {
	name, err := cleanName(art.Filename)
	if err != nil {
		return "", err
	}
	key := path.Join(strings.Trim(s.cfg.Prefix, "/"), name)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	out, err := s.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(art.Data),
		ContentType: aws.String(art.ContentType),
	})
	if err != nil {
		s.logger.Error("artifact.s3.failed", "bucket", s.cfg.Bucket, "key", key, "error", err)
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	loc := out.Location
	if loc == "" {
		loc = fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, key)
	}
	s.logger.Info("artifact.s3.ok", "location", loc, "bytes", len(art.Data))
	return loc, nil
}

func cleanName(name string) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" || base == ".." {
		return "", common.NewAppError("INVALID_ARTIFACT", "artifact filename is required", common.ErrInvalidInput)
	}
	return base, nil
}
