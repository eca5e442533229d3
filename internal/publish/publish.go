package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"stemsplit/internal/config"
	"stemsplit/internal/logging"
	"stemsplit/internal/services"
)

// Publisher copies finished stems to remote storage.
type Publisher interface {
	// Publish uploads files under a folder named after base and returns the
	// object keys.
	Publish(ctx context.Context, base string, files []string) ([]string, error)
	// Check verifies the destination is reachable.
	Check(ctx context.Context) error
	Enabled() bool
}

// New returns a minio-backed publisher when uploads are enabled, otherwise a
// no-op implementation.
func New(cfg *config.Config, logger *slog.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Upload.Enabled {
		return noopPublisher{}, nil
	}
	client, err := minio.New(cfg.Upload.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Upload.AccessKey, cfg.Upload.SecretKey, ""),
		Secure: cfg.Upload.UseSSL,
		Region: cfg.Upload.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "create client", cfg.Upload.Endpoint, err)
	}
	return &minioPublisher{
		client: client,
		bucket: cfg.Upload.Bucket,
		region: cfg.Upload.Region,
		prefix: cfg.Upload.Prefix,
		logger: logging.NewComponentLogger(logger, "publish"),
	}, nil
}

type minioPublisher struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	logger *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

func (p *minioPublisher) Enabled() bool { return true }

func (p *minioPublisher) Check(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "upload", "bucket exists", p.bucket, err)
	}
	if !exists {
		return services.Wrap(services.ErrNotFound, "upload", "bucket exists", fmt.Sprintf("bucket %s does not exist yet (created on first upload)", p.bucket), nil)
	}
	return nil
}

func (p *minioPublisher) ensureBucket(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bucketReady {
		return nil
	}
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "upload", "bucket exists", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
			return services.Wrap(services.ErrExternalTool, "upload", "make bucket", p.bucket, err)
		}
		p.logger.Info("created upload bucket", logging.String("bucket", p.bucket))
	}
	p.bucketReady = true
	return nil
}

func (p *minioPublisher) Publish(ctx context.Context, base string, files []string) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if err := p.ensureBucket(ctx); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := ObjectKey(p.prefix, base, filepath.Base(file))
		info, err := p.client.FPutObject(ctx, p.bucket, key, file, minio.PutObjectOptions{ContentType: "audio/wav"})
		if err != nil {
			return keys, services.Wrap(services.ErrExternalTool, "upload", "put object", key, err)
		}
		p.logger.Debug("uploaded stem",
			logging.String("bucket", p.bucket),
			logging.String("key", key),
			logging.Int64("bytes", info.Size),
		)
		keys = append(keys, key)
	}
	return keys, nil
}

// ObjectKey builds <prefix>/<base>/<file> with empty parts dropped.
func ObjectKey(prefix, base, file string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{prefix, base, file} {
		if trimmed := strings.Trim(part, "/"); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return path.Join(parts...)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, []string) ([]string, error) { return nil, nil }

func (noopPublisher) Check(context.Context) error { return nil }

func (noopPublisher) Enabled() bool { return false }
