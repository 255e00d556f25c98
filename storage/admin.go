package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListOffloaded 列出 prefix 下的对象（默认为全部转存文件），按时间从旧到新
func ListOffloaded(ctx context.Context, client *minio.Client, bucket, prefix string) ([]ObjectInfo, BucketStats, error) {
	if prefix == "" {
		prefix = offloadPrefix
	}
	var (
		objects []ObjectInfo
		stats   BucketStats
	)
	for object := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, stats, fmt.Errorf("列出对象失败: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{Key: object.Key, Size: object.Size, LastModified: object.LastModified})
	}
	sortByAge(objects)
	stats = summarize(objects)
	return objects, stats, nil
}

// PurgeOffloaded 删除 cutoff 之前修改的转存对象，返回删除数量
func PurgeOffloaded(ctx context.Context, client *minio.Client, bucket string, cutoff time.Time) (int, error) {
	objects, _, err := ListOffloaded(ctx, client, bucket, offloadPrefix)
	if err != nil {
		return 0, err
	}
	victims := olderThan(objects, cutoff)
	if len(victims) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(victims))
	for _, obj := range victims {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	// 删除所有对象
	for rerr := range client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(victims), nil
}

func sortByAge(objects []ObjectInfo) {
	sort.Slice(objects, func(i, j int) bool {
		if objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].Key < objects[j].Key
		}
		return objects[i].LastModified.Before(objects[j].LastModified)
	})
}

func summarize(objects []ObjectInfo) BucketStats {
	var stats BucketStats
	for _, o := range objects {
		stats.TotalObjects++
		stats.TotalSize += o.Size
		if o.LastModified.After(stats.LastModified) {
			stats.LastModified = o.LastModified
		}
	}
	return stats
}

func olderThan(objects []ObjectInfo, cutoff time.Time) []ObjectInfo {
	var out []ObjectInfo
	for _, o := range objects {
		if o.LastModified.Before(cutoff) && strings.HasPrefix(o.Key, offloadPrefix) {
			out = append(out, o)
		}
	}
	return out
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
