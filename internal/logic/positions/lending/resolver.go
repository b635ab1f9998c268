// Package lending 解析 CDP 形态的借贷协议头寸：
// 头寸 NFT 携带 抵押/债务 的单位数量表，池子的 key-value store 携带
// 单位 → 真实资产 的换算率，两者相乘得到真实数量。
package lending

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

const defaultProtocol = "root_finance"

// MarketConfig 描述一个借贷市场实例
type MarketConfig struct {
	Name            string        // 注册表 key，空则用默认协议名
	MarketComponent types.Address // 借贷市场主组件
	CdpResource     types.Address // CDP 头寸 NFT 资源
	PoolStatesKvs   types.Address // 资源地址 → 池状态 的 key-value store
}

// cdpSchema 匹配 CDP NFT 的链上数据：两张 资源 → 单位数量 的表
var cdpSchema = &sbor.Schema{
	TypeName: "CollaterizedDebtPositionData",
	Fields: []sbor.FieldSchema{
		{Name: "collaterals", Kind: sbor.KindMap},
		{Name: "loans", Kind: sbor.KindMap},
	},
}

// poolStateSchema 匹配 KVS 里单个池的状态，只取两侧换算率
var poolStateSchema = &sbor.Schema{
	Fields: []sbor.FieldSchema{
		{Name: "deposit_unit_ratio", Kind: sbor.KindPreciseDecimal},
		{Name: "loan_unit_ratio", Kind: sbor.KindPreciseDecimal},
	},
}

type resolver struct {
	cfg MarketConfig
}

// New 构造一个借贷市场的头寸解析器
func New(cfg MarketConfig) common.Resolver {
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

	holders := rc.Holdings.NonFungibleHoldersOf(r.cfg.CdpResource)
	if len(holders) == 0 {
		return out, nil
	}

	var localIds []string
	for _, h := range holders {
		localIds = append(localIds, h.LocalIds...)
	}
	items, err := rc.Gateway.NonFungibleData(ctx, rc.Anchor, r.cfg.CdpResource, localIds)
	if err != nil {
		return nil, fmt.Errorf("lending %s: fetch cdp data: %w", r.cfg.Name, err)
	}
	cdpByID := make(map[string]sbor.Value, len(items))
	for _, it := range items {
		if it.IsBurned {
			continue
		}
		cdpByID[it.LocalId] = it.Data
	}

	depositRatio, loanRatio, err := r.loadRatios(ctx, rc)
	if err != nil {
		return nil, err
	}

	for _, h := range holders {
		for _, id := range h.LocalIds {
			data, ok := cdpByID[id]
			if !ok {
				continue
			}
			pos, err := r.decodeCdp(id, data, depositRatio, loanRatio)
			if err != nil {
				return nil, err
			}
			if len(pos.Entries) == 0 && len(pos.Loans) == 0 {
				continue
			}
			out[h.Account] = append(out[h.Account], pos)
		}
	}
	return out, nil
}

// loadRatios 读取 KVS 中全部池状态，建出 资源 → 换算率 的两张表。
// KVS 在该高度尚未部署时返回空表，由后续的一致性检查兜底。
func (r *resolver) loadRatios(ctx context.Context, rc *common.ResolverContext) (deposit, loan map[types.Address]decimal.Decimal, err error) {
	entries, err := rc.Gateway.KeyValueStoreEntries(ctx, rc.Anchor, r.cfg.PoolStatesKvs)
	if err != nil {
		return nil, nil, fmt.Errorf("lending %s: fetch pool states: %w", r.cfg.Name, err)
	}

	deposit = make(map[types.Address]decimal.Decimal, len(entries))
	loan = make(map[types.Address]decimal.Decimal, len(entries))
	for _, e := range entries {
		resource, err := e.Key.AsAddress()
		if err != nil {
			return nil, nil, fmt.Errorf("lending %s: pool state key: %w", r.cfg.Name, err)
		}
		rec, err := sbor.Parse(poolStateSchema, e.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("lending %s: pool state for %s: %w", r.cfg.Name, resource, err)
		}
		d, err := rec.Decimal("deposit_unit_ratio")
		if err != nil {
			return nil, nil, fmt.Errorf("lending %s: pool state for %s: %w", r.cfg.Name, resource, err)
		}
		l, err := rec.Decimal("loan_unit_ratio")
		if err != nil {
			return nil, nil, fmt.Errorf("lending %s: pool state for %s: %w", r.cfg.Name, resource, err)
		}
		deposit[resource] = d
		loan[resource] = l
	}
	return deposit, loan, nil
}

// decodeCdp 把单个 CDP NFT 的单位数量表换算成真实数量。
// 头寸引用了换算表中不存在的资源时直接报错，绝不按 0 处理。
func (r *resolver) decodeCdp(
	localId string,
	data sbor.Value,
	depositRatio, loanRatio map[types.Address]decimal.Decimal,
) (common.ProtocolPosition, error) {
	pos := common.ProtocolPosition{
		Protocol:   r.cfg.Name,
		Kind:       common.KindLending,
		Component:  r.cfg.MarketComponent,
		NftLocalId: localId,
	}

	rec, err := sbor.Parse(cdpSchema, data)
	if err != nil {
		return pos, fmt.Errorf("lending %s: cdp %s: %w", r.cfg.Name, localId, err)
	}

	collaterals, err := rec.DecimalMapByAddress("collaterals")
	if err != nil {
		return pos, fmt.Errorf("lending %s: cdp %s: %w", r.cfg.Name, localId, err)
	}
	loans, err := rec.DecimalMapByAddress("loans")
	if err != nil {
		return pos, fmt.Errorf("lending %s: cdp %s: %w", r.cfg.Name, localId, err)
	}

	pos.Entries, err = convertUnits(r.cfg.Name, localId, collaterals, depositRatio)
	if err != nil {
		return pos, err
	}
	pos.Loans, err = convertUnits(r.cfg.Name, localId, loans, loanRatio)
	if err != nil {
		return pos, err
	}
	return pos, nil
}

func convertUnits(
	protocol, localId string,
	units map[types.Address]decimal.Decimal,
	ratios map[types.Address]decimal.Decimal,
) ([]common.PositionEntry, error) {
	var entries []common.PositionEntry
	for resource, amount := range units {
		if amount.IsZero() {
			continue
		}
		ratio, ok := ratios[resource]
		if !ok {
			return nil, &common.MissingConversionRatioError{
				Protocol:   protocol,
				Resource:   resource,
				NftLocalId: localId,
			}
		}
		entries = append(entries, common.PositionEntry{
			Resource: resource,
			Amount:   amount.Mul(ratio).Truncate(18),
		})
	}
	// map 遍历无序，排序保证下游记录可复现
	sort.Slice(entries, func(i, j int) bool { return entries[i].Resource < entries[j].Resource })
	return entries, nil
}
