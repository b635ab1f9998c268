// Package simplepool 解析恒定比例双边池的 LP 头寸：
// 池组件的可分余额即储备，单位净值 = 储备 ÷ LP 总量，
// 持有人索取权 = 单位净值 × LP 余额。
package simplepool

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/types"
)

const defaultProtocol = "ociswap"

// PoolConfig 描述一个恒定比例池
type PoolConfig struct {
	Component  types.Address // 池组件，其可分余额即储备
	LpResource types.Address // LP 单位资源
}

// Config 是一个协议实例下的全部池
type Config struct {
	Name  string // 注册表 key，空则用默认协议名
	Pools []PoolConfig
}

type resolver struct {
	cfg Config
}

// New 构造恒定比例池头寸解析器
func New(cfg Config) common.Resolver {
	if cfg.Name == "" {
		cfg.Name = defaultProtocol
	}
	return &resolver{cfg: cfg}
}

func (r *resolver) Protocol() string {
	return r.cfg.Name
}

func (r *resolver) Resolve(ctx context.Context, rc *common.ResolverContext) (map[types.Address][]common.ProtocolPosition, error) {
	out := make(map[types.Address][]common.ProtocolPosition)

	// 只处理本批次内有人持有 LP 的池
	var involved []PoolConfig
	for _, p := range r.cfg.Pools {
		if len(rc.Holdings.HoldersOf(p.LpResource)) > 0 {
			involved = append(involved, p)
		}
	}
	if len(involved) == 0 {
		return out, nil
	}

	components := make([]types.Address, 0, len(involved))
	lpResources := make([]types.Address, 0, len(involved))
	for _, p := range involved {
		components = append(components, p.Component)
		lpResources = append(lpResources, p.LpResource)
	}

	// 池组件自身的余额就是储备
	reserveRows, err := rc.Gateway.FungibleBalances(ctx, rc.Anchor, components)
	if err != nil {
		return nil, fmt.Errorf("simplepool %s: fetch reserves: %w", r.cfg.Name, err)
	}
	reserves := make(map[types.Address]map[types.Address]decimal.Decimal, len(involved))
	for _, row := range reserveRows {
		m, ok := reserves[row.Account]
		if !ok {
			m = make(map[types.Address]decimal.Decimal)
			reserves[row.Account] = m
		}
		m[row.Resource] = row.Amount
	}

	supplies, err := lpSupplies(ctx, rc, lpResources)
	if err != nil {
		return nil, fmt.Errorf("simplepool %s: %w", r.cfg.Name, err)
	}

	for _, p := range involved {
		valuation := amm.NewPoolUnitValuation(p.Component, p.LpResource, supplies[p.LpResource], reserves[p.Component])
		for _, h := range rc.Holdings.HoldersOf(p.LpResource) {
			// 空池（总量为 0）给出零头寸而不是报错
			redeemable := valuation.Redeemable(h.Amount)
			entries := make([]common.PositionEntry, 0, len(redeemable))
			for resource, amount := range redeemable {
				entries = append(entries, common.PositionEntry{Resource: resource, Amount: amount})
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Resource < entries[j].Resource })

			out[h.Account] = append(out[h.Account], common.ProtocolPosition{
				Protocol:  r.cfg.Name,
				Kind:      common.KindSimplePool,
				Component: p.Component,
				Entries:   entries,
			})
		}
	}
	return out, nil
}

// lpSupplies 读取各 LP 资源在锚定高度的总发行量
func lpSupplies(ctx context.Context, rc *common.ResolverContext, lpResources []types.Address) (map[types.Address]decimal.Decimal, error) {
	details, err := rc.Gateway.EntityDetails(ctx, rc.Anchor, lpResources)
	if err != nil {
		return nil, fmt.Errorf("fetch lp supplies: %w", err)
	}
	supplies := make(map[types.Address]decimal.Decimal, len(details))
	for _, item := range details {
		if item.Details == nil || item.Details.TotalSupply == "" {
			continue
		}
		supply, err := decimal.NewFromString(item.Details.TotalSupply)
		if err != nil {
			return nil, fmt.Errorf("lp %s total supply %q: %w", item.Address, item.Details.TotalSupply, err)
		}
		supplies[types.Address(item.Address)] = supply
	}
	return supplies, nil
}
