// Package snapshot 实现快照编排：在一个锚定高度上，
// 把地址列表切成顺序批次，批内并行批量拉取余额并 fan-out 各协议解析器，
// 任一分支失败整批失败（fail-fast），绝不返回部分批次。
package snapshot

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/consts"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/types"
	"defi-snapshot-xrd/pkg/logger"
)

// Gateway 在解析器所需能力之上再加批量 NFT 持仓拉取，编排层专用
type Gateway interface {
	common.Gateway
	NonFungibleHoldings(ctx context.Context, anchor *gateway.Anchor, accounts []types.Address) ([]gateway.NonFungibleHolding, error)
}

// Orchestrator 持有网关与全部协议解析器，按批次产出账户快照。
// 批与批之间不共享可变状态，中间索引随批次结束丢弃。
type Orchestrator struct {
	gw        Gateway
	resolvers []common.Resolver
	batchSize int
}

// New 构造编排器。batchSize <= 0 时使用默认批大小。
func New(gw Gateway, resolvers []common.Resolver, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = consts.DefaultBatchSize
	}
	return &Orchestrator{gw: gw, resolvers: resolvers, batchSize: batchSize}
}

// Snapshot 对全部账户在同一个锚上产出快照，每个输入地址恰好一条输出。
// 地址列表按 batchSize 切成顺序批次以约束在途并发与内存。
func (o *Orchestrator) Snapshot(
	ctx context.Context,
	anchor *gateway.Anchor,
	accounts []types.Address,
	validators []common.ValidatorMeta,
	window *amm.PriceWindow,
) ([]AccountBalanceSnapshot, error) {
	out := make([]AccountBalanceSnapshot, 0, len(accounts))
	for start := 0; start < len(accounts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(accounts) {
			end = len(accounts)
		}
		batch, err := o.runBatch(ctx, anchor, accounts[start:end], validators, window)
		if err != nil {
			return nil, fmt.Errorf("snapshot: batch %d-%d at version %d: %w", start, end, anchor.StateVersion, err)
		}
		out = append(out, batch...)
		logger.Infof("[SnapshotOrchestrator] batch done: accounts=%d..%d version=%d", start, end, anchor.StateVersion)
	}
	return out, nil
}

// runBatch 处理单个批次：并行批量拉取 → 建索引 → 协议 fan-out → 逐账户装配
func (o *Orchestrator) runBatch(
	ctx context.Context,
	anchor *gateway.Anchor,
	accounts []types.Address,
	validators []common.ValidatorMeta,
	window *amm.PriceWindow,
) ([]AccountBalanceSnapshot, error) {
	var (
		fungibles    []gateway.FungibleBalance
		nonFungibles []gateway.NonFungibleHolding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fungibles, err = o.gw.FungibleBalances(gctx, anchor, accounts)
		return err
	})
	g.Go(func() error {
		var err error
		nonFungibles, err = o.gw.NonFungibleHoldings(gctx, anchor, accounts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rc := &common.ResolverContext{
		Anchor:     anchor,
		Gateway:    o.gw,
		Holdings:   common.BuildHoldingsIndex(accounts, fungibles, nonFungibles),
		Validators: validators,
		Window:     window,
	}

	// 协议 fan-out：各解析器只做同锚的独立读，互不共享状态，
	// 任一失败取消其余分支
	results := make([]map[types.Address][]common.ProtocolPosition, len(o.resolvers))
	g, gctx = errgroup.WithContext(ctx)
	for i, r := range o.resolvers {
		i, r := i, r
		g.Go(func() error {
			positions, err := r.Resolve(gctx, rc)
			if err != nil {
				return fmt.Errorf("protocol %s: %w", r.Protocol(), err)
			}
			results[i] = positions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]AccountBalanceSnapshot, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, o.assemble(account, anchor, rc.Holdings, results))
	}
	return out, nil
}

// assemble 装配单个账户的快照，无头寸协议写入显式空表
func (o *Orchestrator) assemble(
	account types.Address,
	anchor *gateway.Anchor,
	holdings *common.HoldingsIndex,
	results []map[types.Address][]common.ProtocolPosition,
) AccountBalanceSnapshot {
	snap := AccountBalanceSnapshot{
		Account:      account,
		StateVersion: anchor.StateVersion,
		Staked:       decimal.Zero,
		Unstaked:     decimal.Zero,
		Positions:    make(map[string][]common.ProtocolPosition, len(o.resolvers)),
	}

	for resource, amount := range holdings.FungibleBalancesOf(account) {
		snap.Fungibles = append(snap.Fungibles, FungibleHolding{Resource: resource, Amount: amount})
	}
	sort.Slice(snap.Fungibles, func(i, j int) bool { return snap.Fungibles[i].Resource < snap.Fungibles[j].Resource })

	for resource, ids := range holdings.NonFungibleHoldingsOf(account) {
		snap.NonFungibles = append(snap.NonFungibles, NonFungibleHolding{Resource: resource, LocalIds: ids})
	}
	sort.Slice(snap.NonFungibles, func(i, j int) bool { return snap.NonFungibles[i].Resource < snap.NonFungibles[j].Resource })

	for i, r := range o.resolvers {
		positions := results[i][account]
		if positions == nil {
			positions = []common.ProtocolPosition{}
		}
		snap.Positions[r.Protocol()] = positions

		for _, p := range positions {
			switch p.Kind {
			case common.KindStaking:
				snap.Staked = snap.Staked.Add(sumEntries(p.Entries))
			case common.KindStakingClaim:
				snap.Unstaked = snap.Unstaked.Add(sumEntries(p.Entries))
			}
		}
	}
	return snap
}

func sumEntries(entries []common.PositionEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}
