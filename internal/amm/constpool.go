package amm

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/types"
)

// PoolUnitValuation 表示等比池的单位净值：每 1 个 LP 单位对各储备资源的索取权。
// totalSupply 为 0 的空池所有单位净值定义为 0（持有 LP 也视为零头寸，不报错）。
type PoolUnitValuation struct {
	PoolAddress types.Address
	LpResource  types.Address
	TotalSupply decimal.Decimal
	perUnit     map[types.Address]decimal.Decimal
}

// NewPoolUnitValuation 由储备与 LP 总量构造单位净值表
func NewPoolUnitValuation(
	pool types.Address,
	lpResource types.Address,
	totalSupply decimal.Decimal,
	reserves map[types.Address]decimal.Decimal,
) *PoolUnitValuation {
	perUnit := make(map[types.Address]decimal.Decimal, len(reserves))
	for resource, reserve := range reserves {
		if totalSupply.IsZero() {
			perUnit[resource] = zero
			continue
		}
		perUnit[resource] = div(reserve, totalSupply)
	}
	return &PoolUnitValuation{
		PoolAddress: pool,
		LpResource:  lpResource,
		TotalSupply: totalSupply,
		perUnit:     perUnit,
	}
}

// ValuePerUnit 返回单个 LP 单位对某资源的索取权（未知资源返回 0）
func (p *PoolUnitValuation) ValuePerUnit(resource types.Address) decimal.Decimal {
	if v, ok := p.perUnit[resource]; ok {
		return v
	}
	return zero
}

// Resources 返回池内全部储备资源地址
func (p *PoolUnitValuation) Resources() []types.Address {
	out := make([]types.Address, 0, len(p.perUnit))
	for r := range p.perUnit {
		out = append(out, r)
	}
	return out
}

// Redeemable 计算持有 lpBalance 个 LP 单位可赎回的各项储备数量，按 18 位截断
func (p *PoolUnitValuation) Redeemable(lpBalance decimal.Decimal) map[types.Address]decimal.Decimal {
	out := make(map[types.Address]decimal.Decimal, len(p.perUnit))
	for resource, unit := range p.perUnit {
		out[resource] = unit.Mul(lpBalance).Truncate(18)
	}
	return out
}
