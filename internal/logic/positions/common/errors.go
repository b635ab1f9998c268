package common

import (
	"fmt"

	"defi-snapshot-xrd/internal/types"
)

// MissingConversionRatioError 表示头寸引用的资源在池状态的换算表里不存在。
// 这是 NFT 与池状态之间的数据一致性缺口，必须上抛，绝不允许按 0 处理，
// 否则会错报用户持仓。
type MissingConversionRatioError struct {
	Protocol   string
	Resource   types.Address
	NftLocalId string
}

func (e *MissingConversionRatioError) Error() string {
	return fmt.Sprintf("positions: protocol %s: no conversion ratio for resource %s (position nft %s)",
		e.Protocol, e.Resource, e.NftLocalId)
}
