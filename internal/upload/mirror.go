package upload

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/netbackuppro/netbackuppro/internal/config"
	"github.com/netbackuppro/netbackuppro/pkg/logger"
)

// Mirror writes the day's captures to an object-storage bucket alongside
// the SFTP upload. Strictly best-effort: a mirror failure never affects the
// primary transfer or the archive stage.
type Mirror struct {
	cfg    config.MirrorConfig
	client *minio.Client
}

// NewMirror returns nil (no mirror) when the feature is disabled or the
// client cannot be built.
func NewMirror(cfg config.MirrorConfig) *Mirror {
	if !cfg.Enabled {
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		logger.Warnf("object-storage mirror disabled: %v", err)
		return nil
	}
	return &Mirror{cfg: cfg, client: client}
}

// Push uploads each file to <bucket>/<YYYYMMDD>/<filename>.
func (m *Mirror) Push(ctx context.Context, stamp time.Time, files []string) {
	if m == nil {
		return
	}
	bucket := m.cfg.Bucket

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		logger.Warnf("mirror bucket check failed: %v", err)
		return
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			logger.Warnf("mirror bucket create failed: %v", err)
			return
		}
	}

	prefix := stamp.Format("20060102")
	for _, f := range files {
		object := path.Join(prefix, filepath.Base(f))
		if _, err := m.client.FPutObject(ctx, bucket, object, f, minio.PutObjectOptions{
			ContentType: "text/plain; charset=utf-8",
		}); err != nil {
			logger.Warnf("mirror upload of %s failed: %v", object, err)
			continue
		}
		logger.Debugf("Mirrored: %s", object)
	}
}
