package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"defi-snapshot-xrd/internal/cache"
	"defi-snapshot-xrd/internal/config"
	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/pkg/logger"

	"github.com/shopspring/decimal"
)

// maxQuoteAgeS 报价发布时间超过该值视为过期，丢弃
const maxQuoteAgeS = 600

// PriceSyncService 周期性从价格服务拉取美元报价，
// 写入 QuoteHistory（历史点位）与 QuoteCache（最新值）。
type PriceSyncService struct {
	history    *cache.QuoteHistory
	quotes     *cache.QuoteCache
	endpoint   string
	httpClient *http.Client
	interval   time.Duration
	stopChan   chan struct{}
	ctx        context.Context
	cancel     func(err error)
}

// quoteItem 是价格服务返回的一条报价
type quoteItem struct {
	Resource  string          `json:"resource"`
	PriceUsd  decimal.Decimal `json:"price_usd"`
	Timestamp int64           `json:"timestamp"`
}

func NewPriceSyncService(
	cfg *config.PriceServiceConfig,
	history *cache.QuoteHistory,
	quotes *cache.QuoteCache,
) (*PriceSyncService, error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	s := &PriceSyncService{
		history:    history,
		quotes:     quotes,
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		interval:   time.Duration(cfg.SyncIntervalS) * time.Second,
		stopChan:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}

	// 兜底价：价格服务不可用时也能给快照附带 XRD 报价
	if cfg.XrdPrice > 0 {
		fallback := decimal.NewFromFloat(cfg.XrdPrice)
		s.history.Insert(map[types.Address]cache.QuotePoint{
			consts.XrdResource: {Timestamp: time.Now().Unix(), PriceUsd: fallback},
		})
		s.quotes.Set(consts.XrdResource, fallback)
	}

	// 初始化
	const retryCount = 3
	for i := 0; i <= retryCount; i++ {
		if err := s.update(); err != nil {
			logger.Warnf("[PriceSyncService] 第 %d 次 update() 失败: %v", i+1, err)
		} else {
			logger.Infof("[PriceSyncService] 初始价格同步成功")
			return s, nil
		}
		time.Sleep(2 * time.Second)
	}
	if cfg.XrdPrice > 0 {
		logger.Warnf("[PriceSyncService] 初始同步失败，使用配置兜底价 %.6f", cfg.XrdPrice)
		return s, nil
	}
	return nil, fmt.Errorf("[PriceSyncService] 初始同步失败")
}

func (s *PriceSyncService) Start() {
	s.scheduleNext()
	<-s.stopChan
}

func (s *PriceSyncService) scheduleNext() {
	time.AfterFunc(s.interval, func() {
		if err := s.update(); err != nil {
			logger.Warnf("[PriceSyncService] 周期性更新失败: %v", err)
		}
		// 如果没有被 Stop，就继续调度
		select {
		case <-s.ctx.Done():
			return
		default:
			s.scheduleNext()
		}
	})
}

func (s *PriceSyncService) Stop() {
	s.cancel(errors.New("PriceSyncService stop"))
	select {
	case <-s.stopChan:
		// 已关闭，无需重复关闭
	default:
		close(s.stopChan)
	}
}

func (s *PriceSyncService) update() (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[PriceSyncService] update panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("update panic: %v", r)
		}
	}()

	items, err := s.fetchQuotes()
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	points := make(map[types.Address]cache.QuotePoint, len(items))
	for _, item := range items {
		resource, err := types.TryAddressFromString(item.Resource)
		if err != nil {
			logger.Warnf("[PriceSyncService] 非法资源地址: %s err=%v", item.Resource, err)
			continue
		}
		if now-item.Timestamp > maxQuoteAgeS {
			logger.Warnf("[PriceSyncService] 报价过期: resource=%s ts=%d", item.Resource, item.Timestamp)
			continue
		}
		points[resource] = cache.QuotePoint{Timestamp: item.Timestamp, PriceUsd: item.PriceUsd}
		s.quotes.Set(resource, item.PriceUsd)
	}
	if len(points) == 0 {
		return fmt.Errorf("no usable quotes in response (%d items)", len(items))
	}

	s.history.Insert(points)
	logger.Infof("[PriceSyncService] 同步完成: quotes=%d", len(points))
	return nil
}

func (s *PriceSyncService) fetchQuotes() ([]quoteItem, error) {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/v1/quotes", nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price service status %d", resp.StatusCode)
	}

	var items []quoteItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode quotes failed: %w", err)
	}
	logger.Infof("[PriceSyncService] 拉取成功, 条数: %d, 耗时: %v", len(items), time.Since(start))
	return items, nil
}
