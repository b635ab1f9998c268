package progress

import (
	"context"
	"database/sql"
	"fmt"

	"defi-snapshot-xrd/pkg/logger"
)

// DBProgressStore 管理批次进度的 DB 存储。
// 持久记录发布进度，服务重启或 Redis 失效后可回源查询，
// 不承担高频判重，只做 fallback。
type DBProgressStore struct {
	db *sql.DB
}

func NewDBProgressStore(db *sql.DB) *DBProgressStore {
	return &DBProgressStore{db: db}
}

// CheckBatchPublished 判定某批次是否已发布（Redis 失效后的 fallback）
func (d *DBProgressStore) CheckBatchPublished(ctx context.Context, stateVersion uint64, batchIndex int) (bool, error) {
	query := `SELECT 1 FROM progress_snapshot_batch WHERE state_version = $1 AND batch_index = $2 AND status = $3`
	var dummy int
	err := d.db.QueryRowContext(ctx, query, stateVersion, batchIndex, BatchPublished).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check batch published error: %w", err)
	}
	return true, nil
}

// InsertOrUpdateBatch 插入或更新单条批次记录
func (d *DBProgressStore) InsertOrUpdateBatch(ctx context.Context, rec *BatchRecord) error {
	query := `
		INSERT INTO progress_snapshot_batch (state_version, batch_index, account_count, status, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (state_version, batch_index) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := d.db.ExecContext(ctx, query, rec.StateVersion, rec.BatchIndex, rec.AccountCount, rec.Status)
	if err != nil {
		return fmt.Errorf("insert/update batch %d/%d failed: %w", rec.StateVersion, rec.BatchIndex, err)
	}
	return nil
}

// BatchInsertRecords 批量写入批次记录，按 batchLimit 分段，冲突时只更新状态
func (d *DBProgressStore) BatchInsertRecords(ctx context.Context, records []*BatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchLimit = 1000
	for i := 0; i < len(records); i += batchLimit {
		end := i + batchLimit
		if end > len(records) {
			end = len(records)
		}
		if err := d.insertChunk(ctx, records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DBProgressStore) insertChunk(ctx context.Context, records []*BatchRecord) error {
	query := `INSERT INTO progress_snapshot_batch (state_version, batch_index, account_count, status, updated_at) VALUES `
	args := make([]interface{}, 0, len(records)*4)
	placeholders := ""

	for i, r := range records {
		placeholders += fmt.Sprintf("($%d,$%d,$%d,$%d,CURRENT_TIMESTAMP),", i*4+1, i*4+2, i*4+3, i*4+4)
		args = append(args, r.StateVersion, r.BatchIndex, r.AccountCount, r.Status)
	}

	query += placeholders[:len(placeholders)-1] +
		` ON CONFLICT (state_version, batch_index) DO UPDATE SET
	status = EXCLUDED.status,
	updated_at = CURRENT_TIMESTAMP`

	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// DeleteOldBatches 删除历史批次记录（进度 GC）。
// 以最新 state_version 为基准保留最近一段高度区间，分批删除防止长事务。
func (d *DBProgressStore) DeleteOldBatches(ctx context.Context, retainVersions uint64) error {
	var latest sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(state_version) FROM progress_snapshot_batch`).Scan(&latest); err != nil {
		return fmt.Errorf("fetch latest state_version failed: %w", err)
	}
	if !latest.Valid || uint64(latest.Int64) <= retainVersions {
		return nil
	}
	safeVersion := uint64(latest.Int64) - retainVersions

	const batchSize = 1000
	for {
		res, err := d.db.ExecContext(ctx,
			`DELETE FROM progress_snapshot_batch WHERE ctid IN (
				SELECT ctid FROM progress_snapshot_batch WHERE state_version < $1 LIMIT $2
			)`,
			safeVersion, batchSize,
		)
		if err != nil {
			return fmt.Errorf("delete old batches failed: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			break
		}
		logger.Infof("[ProgressGC] deleted %d old batch rows", n)
	}
	return nil
}
