package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/logic/dispatcher"
	"defi-snapshot-xrd/internal/logic/progress"
	"defi-snapshot-xrd/internal/mq"
	"defi-snapshot-xrd/internal/svc"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	defaultBatchDispatchTimeout = 10 * time.Minute
	defaultSnapshotSendTimeout  = 10 * time.Second
	defaultFlushInterval        = 5 * time.Second
	defaultGCInterval           = time.Hour
	defaultRetainVersions       = 10_000_000
	defaultSnapshotInterval     = time.Hour
)

// SnapshotService 周期性驱动一轮完整快照：
// 解析锚 → 按批装配快照 → 编码发 Kafka → 记录批次进度。
// 单轮内所有批次共用同一个锚，批次失败只跳过该批，下一轮整批重试。
type SnapshotService struct {
	sc       *svc.ServiceContext
	interval time.Duration
	stopChan chan struct{}
	ctx      context.Context
	cancel   func(err error)
}

func NewSnapshotService(sc *svc.ServiceContext) *SnapshotService {
	ctx, cancel := context.WithCancelCause(context.Background())
	interval := time.Duration(sc.Config.Snapshot.IntervalS) * time.Second
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	return &SnapshotService{
		sc:       sc,
		interval: interval,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *SnapshotService) Start() {
	// 进度落库与 GC 后台循环随服务生命周期运行
	flushInterval := time.Duration(s.sc.Config.ProgressConf.FlushIntervalS) * time.Second
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	go s.sc.ProgressManager.StartFlushLoop(s.ctx, flushInterval)

	gcInterval := time.Duration(s.sc.Config.ProgressConf.GCIntervalS) * time.Second
	if gcInterval <= 0 {
		gcInterval = defaultGCInterval
	}
	retain := s.sc.Config.ProgressConf.RetainVersions
	if retain == 0 {
		retain = defaultRetainVersions
	}
	s.sc.ProgressManager.StartGCLoop(s.ctx, gcInterval, retain)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *SnapshotService) Stop() {
	s.cancel(errors.New("SnapshotService stop"))
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

func (s *SnapshotService) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[SnapshotService] runOnce panic: %v\n%s", r, debug.Stack())
		}
	}()

	if err := s.runRound(); err != nil {
		logger.Errorf("[SnapshotService] 本轮快照失败: %v", err)
	}
}

func (s *SnapshotService) runRound() error {
	accounts, err := loadAccounts(s.sc.Config.Snapshot.AccountsFile)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	if len(accounts) == 0 {
		logger.Warnf("[SnapshotService] 账户清单为空，跳过本轮")
		return nil
	}

	window, err := s.sc.PriceWindow()
	if err != nil {
		return err
	}

	anchor, err := s.sc.Gateway.ResolveAnchorAtTimestamp(s.ctx, time.Now())
	if err != nil {
		return fmt.Errorf("resolve anchor: %w", err)
	}
	logger.Infof("[SnapshotService] 本轮开始: accounts=%d version=%d", len(accounts), anchor.StateVersion)

	batchSize := s.sc.Config.Snapshot.BatchSize
	if batchSize <= 0 {
		batchSize = consts.DefaultBatchSize
	}

	published, skipped, failed := 0, 0, 0
	for start, idx := 0, 0; start < len(accounts); start, idx = start+batchSize, idx+1 {
		end := start + batchSize
		if end > len(accounts) {
			end = len(accounts)
		}

		should, err := s.sc.ProgressManager.ShouldPublishBatch(s.ctx, anchor.StateVersion, idx)
		if err != nil {
			return fmt.Errorf("progress check batch %d: %w", idx, err)
		}
		if !should {
			skipped++
			continue
		}

		if err := s.publishBatch(anchor, idx, accounts[start:end], window); err != nil {
			failed++
			logger.Errorf("[SnapshotService] batch %d 失败: %v", idx, err)
			_ = s.sc.ProgressManager.MarkBatchStatus(s.ctx, anchor.StateVersion, idx, end-start, progress.BatchFailed)
			continue
		}
		published++
	}

	logger.Infof("[SnapshotService] 本轮结束: version=%d published=%d skipped=%d failed=%d",
		anchor.StateVersion, published, skipped, failed)
	return nil
}

func (s *SnapshotService) publishBatch(anchor *gateway.Anchor, idx int, accounts []types.Address, window *amm.PriceWindow) error {
	timeout := time.Duration(s.sc.Config.TimeConf.BatchDispatchTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultBatchDispatchTimeout
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	if err := s.sc.ProgressManager.MarkBatchStatus(ctx, anchor.StateVersion, idx, len(accounts), progress.BatchPending); err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}

	snaps, err := s.sc.Orchestrator.Snapshot(ctx, anchor, accounts, s.sc.Validators, window)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	jobs, err := dispatcher.BuildSnapshotKafkaJobs(
		s.sc.Config.KafkaProducerConf.Topics.Snapshot,
		int32(s.sc.Config.KafkaProducerConf.Partitions.Snapshot),
		consts.XrdResource,
		snaps,
		s.quote,
	)
	if err != nil {
		return fmt.Errorf("build jobs: %w", err)
	}

	sendTimeout := time.Duration(s.sc.Config.TimeConf.SnapshotSendTimeoutMs) * time.Millisecond
	if sendTimeout <= 0 {
		sendTimeout = defaultSnapshotSendTimeout
	}
	_, sendFailed := mq.SendKafkaJobs(ctx, s.sc.Producer, jobs, sendTimeout)
	if len(sendFailed) > 0 {
		return fmt.Errorf("kafka send failed: %d/%d, first: %v", len(sendFailed), len(jobs), sendFailed[0].Err)
	}

	if err := s.sc.ProgressManager.MarkBatchStatus(ctx, anchor.StateVersion, idx, len(accounts), progress.BatchPublished); err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	logger.Infof("[SnapshotService] batch %d 发布完成: accounts=%d version=%d", idx, len(accounts), anchor.StateVersion)
	return nil
}

// quote 给 dispatcher 提供 USD 报价（无报价时静默缺省）
func (s *SnapshotService) quote(resource types.Address) (decimal.Decimal, bool) {
	p, err := s.sc.QuoteCache.Quote(resource)
	if err != nil {
		return decimal.Zero, false
	}
	return p, true
}

// loadAccounts 读取账户清单文件：每行一个地址，支持 # 注释与空行
func loadAccounts(path string) ([]types.Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var accounts []types.Address
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := types.TryAddressFromString(line)
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", line, err)
		}
		accounts = append(accounts, addr)
	}
	return accounts, scanner.Err()
}
