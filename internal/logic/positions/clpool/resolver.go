// Package clpool 解析集中流动性池的头寸 NFT：
// NFT 携带流动性数值与左右 tick 边界，池组件状态携带当前 sqrt 价格，
// 经 tick 数学换算出可撤出的两侧数量；设置了价格窗口时再按窗口切分。
package clpool

import (
	"context"
	"fmt"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

const defaultProtocol = "ociswap_precision"

// PoolConfig 描述一个集中流动性池
type PoolConfig struct {
	Component           types.Address // 池组件
	PositionNftResource types.Address // 头寸 NFT 资源
}

// Config 是一个协议实例下的全部池
type Config struct {
	Name  string // 注册表 key，空则用默认协议名
	Pools []PoolConfig
}

// poolStateSchema 匹配池组件状态：两侧资源与当前 sqrt 价格
var poolStateSchema = &sbor.Schema{
	Fields: []sbor.FieldSchema{
		{Name: "x_address", Kind: sbor.KindReference},
		{Name: "y_address", Kind: sbor.KindReference},
		{Name: "price_sqrt", Kind: sbor.KindPreciseDecimal},
	},
}

// positionSchema 匹配头寸 NFT 数据
var positionSchema = &sbor.Schema{
	TypeName: "LiquidityPosition",
	Fields: []sbor.FieldSchema{
		{Name: "liquidity", Kind: sbor.KindPreciseDecimal},
		{Name: "left_bound", Kind: sbor.KindI32},
		{Name: "right_bound", Kind: sbor.KindI32},
	},
}

type resolver struct {
	cfg Config
}

// New 构造集中流动性头寸解析器
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

	var involved []PoolConfig
	for _, p := range r.cfg.Pools {
		if len(rc.Holdings.NonFungibleHoldersOf(p.PositionNftResource)) > 0 {
			involved = append(involved, p)
		}
	}
	if len(involved) == 0 {
		return out, nil
	}

	components := make([]types.Address, 0, len(involved))
	for _, p := range involved {
		components = append(components, p.Component)
	}
	states, err := rc.Gateway.ComponentStates(ctx, rc.Anchor, components)
	if err != nil {
		return nil, fmt.Errorf("clpool %s: fetch pool states: %w", r.cfg.Name, err)
	}

	for _, p := range involved {
		state, ok := states[p.Component]
		if !ok {
			return nil, fmt.Errorf("clpool %s: pool %s has no state at anchor", r.cfg.Name, p.Component)
		}
		if err := r.resolvePool(ctx, rc, p, state.State, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *resolver) resolvePool(
	ctx context.Context,
	rc *common.ResolverContext,
	p PoolConfig,
	state sbor.Value,
	out map[types.Address][]common.ProtocolPosition,
) error {
	rec, err := sbor.Parse(poolStateSchema, state)
	if err != nil {
		return fmt.Errorf("clpool %s: pool %s state: %w", r.cfg.Name, p.Component, err)
	}
	xRes, err := rec.Address("x_address")
	if err != nil {
		return fmt.Errorf("clpool %s: pool %s state: %w", r.cfg.Name, p.Component, err)
	}
	yRes, err := rec.Address("y_address")
	if err != nil {
		return fmt.Errorf("clpool %s: pool %s state: %w", r.cfg.Name, p.Component, err)
	}
	currentSqrt, err := rec.Decimal("price_sqrt")
	if err != nil {
		return fmt.Errorf("clpool %s: pool %s state: %w", r.cfg.Name, p.Component, err)
	}

	xDiv, yDiv, err := divisibilities(ctx, rc, xRes, yRes)
	if err != nil {
		return fmt.Errorf("clpool %s: pool %s: %w", r.cfg.Name, p.Component, err)
	}

	holders := rc.Holdings.NonFungibleHoldersOf(p.PositionNftResource)
	var localIds []string
	for _, h := range holders {
		localIds = append(localIds, h.LocalIds...)
	}
	items, err := rc.Gateway.NonFungibleData(ctx, rc.Anchor, p.PositionNftResource, localIds)
	if err != nil {
		return fmt.Errorf("clpool %s: fetch position data for %s: %w", r.cfg.Name, p.Component, err)
	}
	dataByID := make(map[string]sbor.Value, len(items))
	for _, it := range items {
		if it.IsBurned {
			continue
		}
		dataByID[it.LocalId] = it.Data
	}

	for _, h := range holders {
		for _, id := range h.LocalIds {
			data, ok := dataByID[id]
			if !ok {
				continue
			}
			rec, err := sbor.Parse(positionSchema, data)
			if err != nil {
				return fmt.Errorf("clpool %s: position %s/%s: %w", r.cfg.Name, p.PositionNftResource, id, err)
			}
			liquidity, err := rec.Decimal("liquidity")
			if err != nil {
				return fmt.Errorf("clpool %s: position %s/%s: %w", r.cfg.Name, p.PositionNftResource, id, err)
			}
			leftTick, err := rec.I32("left_bound")
			if err != nil {
				return fmt.Errorf("clpool %s: position %s/%s: %w", r.cfg.Name, p.PositionNftResource, id, err)
			}
			rightTick, err := rec.I32("right_bound")
			if err != nil {
				return fmt.Errorf("clpool %s: position %s/%s: %w", r.cfg.Name, p.PositionNftResource, id, err)
			}

			amounts, err := amm.SplitByWindow(
				liquidity,
				currentSqrt,
				amm.PriceSqrtFromTick(leftTick),
				amm.PriceSqrtFromTick(rightTick),
				rc.Window,
				xDiv, yDiv,
			)
			if err != nil {
				return fmt.Errorf("clpool %s: position %s/%s: %w", r.cfg.Name, p.PositionNftResource, id, err)
			}

			pos := common.ProtocolPosition{
				Protocol:   r.cfg.Name,
				Kind:       common.KindConcentratedPool,
				Component:  p.Component,
				NftLocalId: id,
				Entries: []common.PositionEntry{
					{Resource: xRes, Amount: amounts.XWithin},
					{Resource: yRes, Amount: amounts.YWithin},
				},
			}
			if !rc.Window.Unbounded() {
				pos.OutsideWindow = []common.PositionEntry{
					{Resource: xRes, Amount: amounts.XOutside},
					{Resource: yRes, Amount: amounts.YOutside},
				}
			}
			out[h.Account] = append(out[h.Account], pos)
		}
	}
	return nil
}

// divisibilities 读取两侧资源的小数位数，缺省按 18 处理
func divisibilities(ctx context.Context, rc *common.ResolverContext, xRes, yRes types.Address) (int32, int32, error) {
	details, err := rc.Gateway.EntityDetails(ctx, rc.Anchor, []types.Address{xRes, yRes})
	if err != nil {
		return 0, 0, fmt.Errorf("fetch divisibilities: %w", err)
	}
	div := map[types.Address]int32{xRes: 18, yRes: 18}
	for _, item := range details {
		if item.Details != nil && item.Details.Divisibility > 0 {
			div[types.Address(item.Address)] = item.Details.Divisibility
		}
	}
	return div[xRes], div[yRes], nil
}
