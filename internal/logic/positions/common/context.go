package common

import (
	"context"

	"defi-snapshot-xrd/internal/amm"
	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/types"
)

// Gateway 是头寸解析器所需的网关读取能力子集。
// 所有方法都必须带上 ResolverContext.Anchor，保证批内高度一致。
type Gateway interface {
	EntityDetails(ctx context.Context, anchor *gateway.Anchor, addresses []types.Address) ([]gateway.EntityDetailsItem, error)
	FungibleBalances(ctx context.Context, anchor *gateway.Anchor, accounts []types.Address) ([]gateway.FungibleBalance, error)
	NonFungibleData(ctx context.Context, anchor *gateway.Anchor, resource types.Address, localIds []string) ([]gateway.NonFungibleData, error)
	KeyValueStoreEntries(ctx context.Context, anchor *gateway.Anchor, store types.Address) ([]gateway.KeyValueEntry, error)
	ComponentStates(ctx context.Context, anchor *gateway.Anchor, components []types.Address) (map[types.Address]gateway.ComponentState, error)
}

// ResolverContext 是传入每个协议解析器的只读上下文。
// 批量余额已在编排层抓取完毕并建好索引，解析器只为协议私有状态
//（NFT 数据、KVS、池组件状态）发起增量查询。
type ResolverContext struct {
	Anchor     *gateway.Anchor
	Gateway    Gateway
	Holdings   *HoldingsIndex
	Validators []ValidatorMeta
	Window     *amm.PriceWindow // 集中流动性的价格窗口，nil 表示不设窗口
}

// Resolver 在一个锚定高度上解析单个协议实例的全部账户头寸。
// 返回值按账户聚合；没有头寸的账户不出现在结果里，
// 显式空条目由编排层在汇总时补齐。
type Resolver interface {
	Protocol() string
	Resolve(ctx context.Context, rc *ResolverContext) (map[types.Address][]ProtocolPosition, error)
}
