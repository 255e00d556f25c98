package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"ytbot/logger"
)

// objectAPI 转存所需的 *minio.Client 方法
type objectAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Offloader 上传超过聊天附件大小限制的文件，并返回预签名下载链接
type Offloader struct {
	client  objectAPI
	bucket  string
	linkTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewOffloader 创建 Offloader，client 通常是 *minio.Client
func NewOffloader(client objectAPI, bucket string, linkTTL time.Duration) *Offloader {
	if linkTTL <= 0 {
		linkTTL = time.Hour
	}
	return &Offloader{
		client:  client,
		bucket:  bucket,
		linkTTL: linkTTL,
		now:     time.Now,
		log:     logger.Component("offload"),
	}
}

// ObjectName 生成 offload/<date>/<id>/<name>
func (o *Offloader) ObjectName(id, name string) string {
	return path.Join(offloadPrefix, o.now().UTC().Format("2006/01/02"), id, path.Base("/"+name))
}

// Offload 上传 data 并返回在配置的 TTL 内有效的链接
func (o *Offloader) Offload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	object := o.ObjectName(uuid.NewString(), name)

	_, err := o.client.PutObject(ctx, o.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", object, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", path.Base(object)))
	link, err := o.client.PresignedGetObject(ctx, o.bucket, object, o.linkTTL, params)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", object, err)
	}

	o.log.Info("payload offloaded",
		zap.String("object", object),
		zap.Int("bytes", len(data)),
		zap.Duration("linkTTL", o.linkTTL))
	return link.String(), nil
}
