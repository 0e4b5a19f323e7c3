package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/today-red-note/rednote/pkg/config"
	"github.com/today-red-note/rednote/pkg/logging"
)

// Quality selects the transform applied to stored image URLs.
type Quality string

const (
	// QualityThumbnail is the list/waterfall rendition.
	QualityThumbnail Quality = "thumbnail"
	// QualityPreview is the detail-page rendition.
	QualityPreview Quality = "preview"
)

type qualityParams struct {
	width   int
	quality int
	format  string
}

var qualityConfig = map[Quality]qualityParams{
	QualityThumbnail: {width: 480, quality: 60, format: "webp"},
	QualityPreview:   {width: 800, quality: 75, format: "webp"},
}

// ProcessImageURL attaches an OSS transform parameter to a stored image
// URL. It is a pure string transform; no network call. URLs that already
// carry a transform, or that do not parse, come back unchanged.
func ProcessImageURL(raw string, quality Quality) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	if q.Has("x-oss-process") {
		return raw
	}
	params, ok := qualityConfig[quality]
	if !ok {
		return raw
	}
	q.Set("x-oss-process", fmt.Sprintf(
		"image/resize,w_%d/quality,q_%d/format,%s",
		params.width, params.quality, params.format,
	))
	u.RawQuery = q.Encode()
	return u.String()
}

// ObjectKeyFromURL extracts the bucket object key from a stored image URL.
// Empty result means the URL does not reference a stored object.
func ObjectKeyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimLeft(u.Path, "/")
}

// Bucket wraps the object storage client holding post images. A nil Bucket
// is valid and turns every operation into a no-op, for deployments without
// object storage.
type Bucket struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// New creates an object storage client, or nil when storage is disabled
func New(cfg *config.StorageConfig) (*Bucket, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Object storage disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	logging.GetLogger().Info("Object storage client created",
		zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return &Bucket{
		client: client,
		bucket: cfg.Bucket,
		logger: logging.WithComponent("storage"),
	}, nil
}

// RemoveObjects deletes the given object keys, best effort: it keeps going
// past individual failures and returns the first error encountered.
func (b *Bucket) RemoveObjects(ctx context.Context, keys []string) error {
	if b == nil || b.client == nil {
		return nil
	}
	var firstErr error
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			b.logger.Warn("failed to remove object", zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
