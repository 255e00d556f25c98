package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"ytbot/config"
	"ytbot/storage"
)

var (
	minioPrefix string
	minioPurge  time.Duration
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "查看或清理超大文件存储",
	Long:  `列出上传到 MinIO 的超大文件，或删除早于指定时长的文件。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if !cfg.MinioEnabled() {
			log.Fatal("MINIO_ENDPOINT 未设置")
		}
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		ctx := context.Background()
		client, err := storage.InitMinio(ctx, cfg)
		if err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}

		if minioPurge > 0 {
			n, err := storage.PurgeOffloaded(ctx, client, cfg.MinioBucket, time.Now().Add(-minioPurge))
			if err != nil {
				log.Fatalf("清理失败: %v", err)
			}
			fmt.Printf("已删除 %d 个文件\n", n)
			return
		}

		objects, stats, err := storage.ListOffloaded(ctx, client, cfg.MinioBucket, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}
		for _, o := range objects {
			fmt.Printf("%s  %10s  %s\n", o.LastModified.Format(time.RFC3339), storage.FormatSize(o.Size), o.Key)
		}
		fmt.Printf("\n共 %d 个文件, %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().DurationVar(&minioPurge, "purge-older", 0, "删除早于该时长的文件, 例如 24h")

	minioCmd.Example = `  # 列出所有超大文件
  ytbot minio

  # 删除一天前的文件
  ytbot minio --purge-older 24h`
}
