package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// AvailabilityCacheInterface は残席数キャッシュのインターフェース
type AvailabilityCacheInterface interface {
	GetAvailableSeats(ctx context.Context, tripID string) (int, error)
	SetAvailableSeats(ctx context.Context, tripID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, tripID string) error
}

// AvailabilityCache はツアーの残席数キャッシュを管理する
// 予約系の書き込みは必ず Invalidate を呼ぶ（書き込み経路はカウンタを直接更新するため）
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache は新しいAvailabilityCacheインスタンスを作成する
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

// GetAvailableSeats はツアーの残席数をキャッシュから取得する
func (c *AvailabilityCache) GetAvailableSeats(ctx context.Context, tripID string) (int, error) {
	key := c.availableSeatsKey(tripID)
	val, err := c.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableSeats はツアーの残席数をキャッシュに保存する
func (c *AvailabilityCache) SetAvailableSeats(ctx context.Context, tripID string, count int, ttl time.Duration) error {
	key := c.availableSeatsKey(tripID)
	if err := c.client.Set(ctx, key, count, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はツアーのキャッシュを無効化する
func (c *AvailabilityCache) Invalidate(ctx context.Context, tripID string) error {
	key := c.availableSeatsKey(tripID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) availableSeatsKey(tripID string) string {
	return fmt.Sprintf("trips:available:%s", tripID)
}

var _ AvailabilityCacheInterface = (*AvailabilityCache)(nil)
