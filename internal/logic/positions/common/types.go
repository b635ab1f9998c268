package common

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/types"
)

// PositionKind 标识归一化头寸的协议形态
type PositionKind string

const (
	KindLending          PositionKind = "lending"           // CDP 抵押/借贷
	KindStaking          PositionKind = "staking"           // LSU 换算后的在押本金
	KindStakingClaim     PositionKind = "staking_claim"     // 待领取的解押 NFT
	KindSimplePool       PositionKind = "simple_pool"       // 恒定比例池 LP
	KindConcentratedPool PositionKind = "concentrated_pool" // 集中流动性头寸 NFT
)

// PositionEntry 是归一化后的 (资源, 数量) 二元组
type PositionEntry struct {
	Resource types.Address
	Amount   decimal.Decimal
}

// ProtocolPosition 表示某账户在单个协议实例中的一条头寸。
// Entries 始终为资产侧数量；Loans 仅 lending 使用（债务侧）；
// OutsideWindow 仅集中流动性在设置价格窗口时填充（窗口外部分）。
type ProtocolPosition struct {
	Protocol   string        // 协议名（注册表 key）
	Kind       PositionKind
	Component  types.Address // 协议主组件 / 池地址
	Validator  types.Address // 仅 staking 系列
	NftLocalId string        // 头寸 NFT 的 local id（如 CDP、流动性凭证）

	Entries       []PositionEntry
	Loans         []PositionEntry
	OutsideWindow []PositionEntry
}

// ValidatorMeta 是调用方提供的验证人元数据，
// 用于在不逐个回源查询的情况下识别质押相关资源。
type ValidatorMeta struct {
	Address          types.Address // 验证人组件地址
	LsuResource      types.Address // 流动质押单位资源
	ClaimNftResource types.Address // 解押领取 NFT 资源
}
