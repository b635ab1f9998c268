package gateway

import (
	"context"
	"time"

	"defi-snapshot-xrd/pkg/logger"
)

// ResolveAnchorAtVersion 直接以显式高度构造锚
func ResolveAnchorAtVersion(stateVersion uint64) *Anchor {
	return &Anchor{StateVersion: stateVersion}
}

// ResolveAnchorAtTimestamp 把墙钟时间解析为锚：取该时间点或之前最近一笔
// 已提交交易的 state_version（向交易流请求 1 条降序记录）。
// 注意：链继续增长时对同一时间戳重复解析可能得到更新的高度，
// 这是账本状态的函数而非时间戳的函数；一次快照内只解析一次。
func (c *Client) ResolveAnchorAtTimestamp(ctx context.Context, ts time.Time) (*Anchor, error) {
	req := &streamTransactionsRequest{
		AtLedgerState: &ledgerStateSelector{Timestamp: ts.UTC().Format(time.RFC3339)},
		Order:         "desc",
		LimitPerPage:  1,
	}

	var resp streamTransactionsResponse
	if err := c.post(ctx, pathStreamTransactions, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, &AnchorNotFoundError{Timestamp: ts}
	}

	anchor := &Anchor{StateVersion: resp.Items[0].StateVersion}
	logger.Infof("[gateway] 锚定完成: ts=%s → state_version=%d", ts.UTC().Format(time.RFC3339), anchor.StateVersion)
	return anchor, nil
}
