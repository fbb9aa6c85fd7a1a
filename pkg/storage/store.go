package storage

import (
	"EcoWatch/pkg/config"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("object not found")

// Store 对象存储抽象，头像等用户上传文件通过它落盘或上云
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PublicURL(key string) string
}

// NewStore 按 Type 选择实现：local|minio|cos
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, cfg.PublicBase)
	case "minio":
		return NewMinioStore(MinioConfig{
			Endpoint:  cfg.MinioAddr,
			AccessKey: cfg.MinioKey,
			SecretKey: cfg.MinioSecret,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioSSL,
			BaseURL:   cfg.PublicBase,
		})
	case "cos":
		return NewCOSStore(cfg.COSBucket, cfg.COSSecretID, cfg.COSSecret)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// NewObjectKey 生成 prefix/2006/01/<uuid><ext> 形式的对象键，ext 取自原文件名
func NewObjectKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join(prefix, now.Format("2006/01"), uuid.NewString()+ext)
}
