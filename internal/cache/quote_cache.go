package cache

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/collection"

	"defi-snapshot-xrd/internal/types"
)

const (
	quoteCacheLimit = 1000
	quoteCacheTTL   = 5 * time.Minute
)

// QuoteFetcher 回源获取某资源的当前美元报价
type QuoteFetcher func(resource types.Address) (decimal.Decimal, error)

// QuoteCache 是唯一长生命周期的共享可变状态：
// 有界 LRU + TTL 的报价缓存，相同 key 的并发回源由 Take 做 single-flight 合并。
type QuoteCache struct {
	cache *collection.Cache
	fetch QuoteFetcher
}

func NewQuoteCache(fetch QuoteFetcher) (*QuoteCache, error) {
	c, err := collection.NewCache(quoteCacheTTL,
		collection.WithLimit(quoteCacheLimit),
		collection.WithName("usd_quote"),
	)
	if err != nil {
		return nil, err
	}
	return &QuoteCache{cache: c, fetch: fetch}, nil
}

// Quote 返回资源的当前美元报价，缓存未命中时回源并写入
func (qc *QuoteCache) Quote(resource types.Address) (decimal.Decimal, error) {
	v, err := qc.cache.Take(string(resource), func() (interface{}, error) {
		return qc.fetch(resource)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Set 直接写入报价（周期同步路径使用，避免读路径回源）
func (qc *QuoteCache) Set(resource types.Address, price decimal.Decimal) {
	qc.cache.Set(string(resource), price)
}
