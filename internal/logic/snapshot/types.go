package snapshot

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/logic/positions/common"
	"defi-snapshot-xrd/internal/types"
)

// FungibleHolding 是快照里的一条可分资源余额
type FungibleHolding struct {
	Resource types.Address
	Amount   decimal.Decimal
}

// NonFungibleHolding 是快照里的一条 NFT 持仓
type NonFungibleHolding struct {
	Resource types.Address
	LocalIds []string
}

// AccountBalanceSnapshot 是引擎的核心输出：每个 (账户, 锚) 恰好一条。
// 装配完成后即视为不可变，所有权交给下游持久化方。
// Positions 对每个已接入协议都有显式条目，无头寸的协议为空表而不是缺失，
// 下游可以依赖覆盖完整性。
type AccountBalanceSnapshot struct {
	Account      types.Address
	StateVersion uint64

	Staked   decimal.Decimal // 原生质押在押本金（XRD）
	Unstaked decimal.Decimal // 解押待领取数量（XRD）

	Fungibles    []FungibleHolding
	NonFungibles []NonFungibleHolding
	Positions    map[string][]common.ProtocolPosition
}
