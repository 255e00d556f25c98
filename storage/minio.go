package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"go.uber.org/zap"

	"ytbot/config"
	"ytbot/logger"
)

// offloadPrefix 超大文件的存放前缀，该前缀下的对象在 offloadRetentionDays 天后过期
const (
	offloadPrefix        = "offload/"
	offloadRetentionDays = 1
)

// InitMinio 初始化 MinIO 客户端并确保存储桶存在
func InitMinio(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	log := logger.Component("minio")
	log.Info("正在连接 MinIO 服务器...",
		zap.String("endpoint", cfg.MinioEndpoint),
		zap.String("bucket", cfg.MinioBucket),
		zap.String("region", cfg.MinioRegion))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		log.Info("成功创建存储桶", zap.String("bucket", cfg.MinioBucket))
	}

	// 过期规则失败不影响启动
	rules := lifecycle.NewConfiguration()
	rules.Rules = []lifecycle.Rule{{
		ID:         "expire-offload",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: offloadPrefix},
		Expiration: lifecycle.Expiration{Days: offloadRetentionDays},
	}}
	if err := client.SetBucketLifecycle(ctx, cfg.MinioBucket, rules); err != nil {
		log.Warn("failed to set bucket lifecycle", zap.Error(err))
	}

	log.Info("MinIO 客户端初始化成功")
	return client, nil
}
