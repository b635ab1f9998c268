package cache

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/types"
)

// QuotePoint 是某资源在某时刻的美元报价
type QuotePoint struct {
	Timestamp int64
	PriceUsd  decimal.Decimal
}

// QuoteHistory 维护每个资源按时间升序的报价序列，
// 支持按快照时刻查询「该时刻或之前最近」的报价，供下游估值参考。
type QuoteHistory struct {
	mu      sync.RWMutex
	history map[types.Address][]QuotePoint
}

func NewQuoteHistory() *QuoteHistory {
	return &QuoteHistory{
		history: make(map[types.Address][]QuotePoint),
	}
}

// UpdateFrom 整段替换若干资源的报价序列（全量拉取路径）
func (qh *QuoteHistory) UpdateFrom(newPoints map[types.Address][]QuotePoint) {
	qh.mu.Lock()
	defer qh.mu.Unlock()

	for resource, points := range newPoints {
		if len(points) == 0 {
			continue
		}
		sort.Slice(points, func(i, j int) bool {
			return points[i].Timestamp < points[j].Timestamp
		})
		qh.history[resource] = points
	}
}

// Insert 增量插入单点报价（周期同步路径）。
// 序列超过容量上限时丢弃最老的一段。
func (qh *QuoteHistory) Insert(newPoints map[types.Address]QuotePoint) {
	qh.mu.Lock()
	defer qh.mu.Unlock()

	const maxCapacity = 400
	const retainCount = 300

	for resource, point := range newPoints {
		points, ok := qh.history[resource]
		if !ok {
			points = make([]QuotePoint, 0, maxCapacity)
			points = append(points, point)
			qh.history[resource] = points
			continue
		}

		if len(points) >= maxCapacity {
			copy(points[:retainCount], points[len(points)-retainCount:])
			points = points[:retainCount]
			qh.history[resource] = points
		}

		// 顺序插入优化：周期同步基本都是追加到尾部
		last := points[len(points)-1]
		if point.Timestamp == last.Timestamp {
			continue
		}
		if point.Timestamp > last.Timestamp {
			qh.history[resource] = append(points, point)
			continue
		}

		insertIdx := sort.Search(len(points), func(i int) bool {
			return points[i].Timestamp >= point.Timestamp
		})
		if insertIdx < len(points) && points[insertIdx].Timestamp == point.Timestamp {
			continue
		}
		points = append(points, QuotePoint{})
		copy(points[insertIdx+1:], points[insertIdx:])
		points[insertIdx] = point
		qh.history[resource] = points
	}
}

// QuoteAt 返回资源在 timestamp 或之前最近的报价。
// 没有任何早于该时刻的点时，取最早的点兜底。
func (qh *QuoteHistory) QuoteAt(resource types.Address, timestamp int64) (decimal.Decimal, bool) {
	qh.mu.RLock()
	defer qh.mu.RUnlock()

	points, ok := qh.history[resource]
	if !ok || len(points) == 0 {
		return decimal.Zero, false
	}
	count := len(points)

	if timestamp >= points[count-1].Timestamp {
		return points[count-1].PriceUsd, true
	}
	if timestamp < points[0].Timestamp {
		return points[0].PriceUsd, true
	}

	idx := sort.Search(count, func(i int) bool {
		return points[i].Timestamp >= timestamp
	})
	if idx < count && points[idx].Timestamp == timestamp {
		return points[idx].PriceUsd, true
	}
	if idx > 0 {
		idx--
	}
	return points[idx].PriceUsd, true
}
