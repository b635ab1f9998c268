package progress

import (
	"context"
	"time"

	"defi-snapshot-xrd/pkg/logger"
)

// ProgressManager 统一封装 Redis + DB + 缓冲区，控制批次判重与写入
type ProgressManager struct {
	redis  *RedisProgressStore
	db     *DBProgressStore
	buffer *batchBuffer
}

func NewProgressManager(redis *RedisProgressStore, db *DBProgressStore) *ProgressManager {
	return &ProgressManager{
		redis:  redis,
		db:     db,
		buffer: newBatchBuffer(),
	}
}

// ShouldPublishBatch 判断某批次是否需要发布：
// - 先查 Redis（快路径）
// - Redis 无记录时 fallback 到 DB，并将结果回填 Redis
// 已发布或正在发布的批次返回 false，失败批次允许整批重发。
func (pm *ProgressManager) ShouldPublishBatch(ctx context.Context, stateVersion uint64, batchIndex int) (bool, error) {
	status, err := pm.redis.GetBatchStatus(ctx, stateVersion, batchIndex)
	if err != nil {
		return false, err
	}
	switch status {
	case BatchPublished, BatchPending:
		return false, nil
	case BatchFailed:
		return true, nil
	}

	// fallback 到 DB
	published, err := pm.db.CheckBatchPublished(ctx, stateVersion, batchIndex)
	if err != nil {
		return false, err
	}
	if published {
		_ = pm.redis.MarkBatchPublished(ctx, stateVersion, batchIndex)
		return false, nil
	}
	return true, nil
}

// MarkBatchStatus 标记某批次的发布状态（已发布 / 失败）。
// 会同时更新 Redis 与缓冲区（供后续批量写入 DB）。
func (pm *ProgressManager) MarkBatchStatus(ctx context.Context, stateVersion uint64, batchIndex, accountCount int, status BatchStatus) error {
	switch status {
	case BatchPublished, BatchFailed, BatchPending:
		if err := pm.redis.MarkBatchStatus(ctx, stateVersion, batchIndex, status); err != nil {
			return err
		}
	default:
		return nil // BatchUnknown 不参与记录
	}

	// Pending 只写 Redis，不进 DB
	if status == BatchPending {
		return nil
	}

	pm.buffer.Add(&BatchRecord{
		StateVersion: stateVersion,
		BatchIndex:   batchIndex,
		AccountCount: accountCount,
		Status:       status,
	})
	return nil
}

// StartFlushLoop 启动后台定时 flush，将缓冲区的批次记录批量落库
func (pm *ProgressManager) StartFlushLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pm.flush(ctx)
			return
		case <-ticker.C:
			pm.flush(ctx)
		}
	}
}

func (pm *ProgressManager) flush(ctx context.Context) {
	flushed := pm.buffer.Flush()
	if len(flushed) == 0 {
		return
	}
	if err := pm.db.BatchInsertRecords(ctx, flushed); err != nil {
		// buffer 已清空，Redis 仍有状态，DB 丢的记录等 TTL 后由 fallback 补查
		logger.Errorf("[ProgressManager] flush %d records failed: %v", len(flushed), err)
	}
}

// StartGCLoop 启动后台 GC 清理（每 interval 执行一次，清理历史批次记录）
func (pm *ProgressManager) StartGCLoop(ctx context.Context, interval time.Duration, retainVersions uint64) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := pm.db.DeleteOldBatches(ctx, retainVersions); err != nil {
					logger.Errorf("[ProgressManager] gc failed: %v", err)
				}
			}
		}
	}()
}
