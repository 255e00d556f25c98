package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ytbot/model"
)

// DefaultTrackTTL 会话曲目列表的过期时间
const DefaultTrackTTL = 24 * time.Hour

// trackItem 有序集合中的一个成员，Position 用来区分标题相同的曲目
type trackItem struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// TrackCache 将每个聊天加载的曲目存入Redis有序集合，score 为曲目位置。
// 实现 session.TrackStore 接口
type TrackCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackCache 创建曲目缓存，ttl <= 0 时使用 DefaultTrackTTL
func NewTrackCache(client *redis.Client, ttl time.Duration) *TrackCache {
	if ttl <= 0 {
		ttl = DefaultTrackTTL
	}
	return &TrackCache{client: client, ttl: ttl}
}

// GetTracksKey 根据聊天ID生成曲目列表的Redis键
func GetTracksKey(chatID int64) string {
	return fmt.Sprintf("session:%d:tracks", chatID)
}

// SaveTracks 在一个事务中替换聊天的曲目列表
func (c *TrackCache) SaveTracks(ctx context.Context, chatID int64, tracks []model.Track) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	members := make([]*redis.Z, 0, len(tracks))
	for i, t := range tracks {
		itemJSON, err := json.Marshal(trackItem{Position: i, Title: t.Title, URL: t.URL})
		if err != nil {
			return fmt.Errorf("failed to marshal track: %w", err)
		}
		members = append(members, &redis.Z{Score: float64(i), Member: itemJSON})
	}

	key := GetTracksKey(chatID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save tracks: %w", err)
	}
	return nil
}

// Tracks 按位置顺序返回曲目列表，键不存在时返回空列表
func (c *TrackCache) Tracks(ctx context.Context, chatID int64) ([]model.Track, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	result, err := c.client.ZRange(ctx, GetTracksKey(chatID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.Track{}, nil
		}
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}

	tracks := make([]model.Track, 0, len(result))
	for _, itemJSON := range result {
		var item trackItem
		if err := json.Unmarshal([]byte(itemJSON), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal track: %w", err)
		}
		tracks = append(tracks, model.Track{Title: item.Title, URL: item.URL})
	}
	return tracks, nil
}

// DeleteTracks 删除聊天的曲目列表
func (c *TrackCache) DeleteTracks(ctx context.Context, chatID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	if err := c.client.Del(ctx, GetTracksKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to delete tracks: %w", err)
	}
	return nil
}
