package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProgressStore 管理 Redis 中的批次发布状态（快路径判重）
type RedisProgressStore struct {
	rdb *redis.Client
}

const (
	batchKeyPrefix = "progress:snapshot:batch"
	batchTTL       = 3 * 24 * time.Hour
)

// NewRedisProgressStore 创建 Redis 判重管理器
func NewRedisProgressStore(rdb *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{rdb: rdb}
}

func (r *RedisProgressStore) key(stateVersion uint64, batchIndex int) string {
	return fmt.Sprintf("%s:%d:%d", batchKeyPrefix, stateVersion, batchIndex)
}

// GetBatchStatus 获取批次状态（Unknown / Published / Failed / Pending）
func (r *RedisProgressStore) GetBatchStatus(ctx context.Context, stateVersion uint64, batchIndex int) (BatchStatus, error) {
	val, err := r.rdb.Get(ctx, r.key(stateVersion, batchIndex)).Int()
	switch {
	case err == redis.Nil:
		return BatchUnknown, nil
	case err != nil:
		return BatchUnknown, fmt.Errorf("redis get error: %w", err)
	case val == int(BatchPublished):
		return BatchPublished, nil
	case val == int(BatchFailed):
		return BatchFailed, nil
	case val == int(BatchPending):
		return BatchPending, nil
	default:
		return BatchUnknown, nil
	}
}

// MarkBatchStatus 设置批次状态
func (r *RedisProgressStore) MarkBatchStatus(ctx context.Context, stateVersion uint64, batchIndex int, status BatchStatus) error {
	return r.rdb.Set(ctx, r.key(stateVersion, batchIndex), int(status), batchTTL).Err()
}

// MarkBatchPublished 标记批次已完整发布
func (r *RedisProgressStore) MarkBatchPublished(ctx context.Context, stateVersion uint64, batchIndex int) error {
	return r.MarkBatchStatus(ctx, stateVersion, batchIndex, BatchPublished)
}

// MarkBatchFailed 标记批次失败，等待外部整批重试
func (r *RedisProgressStore) MarkBatchFailed(ctx context.Context, stateVersion uint64, batchIndex int) error {
	return r.MarkBatchStatus(ctx, stateVersion, batchIndex, BatchFailed)
}

// MarkBatchPending 标记批次发布中（防止并发重复发布）
func (r *RedisProgressStore) MarkBatchPending(ctx context.Context, stateVersion uint64, batchIndex int) error {
	return r.MarkBatchStatus(ctx, stateVersion, batchIndex, BatchPending)
}
