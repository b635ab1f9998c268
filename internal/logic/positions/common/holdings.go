package common

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/gateway"
	"defi-snapshot-xrd/internal/types"
)

// FungibleHolder 表示某资源的一个持有账户及其余额
type FungibleHolder struct {
	Account types.Address
	Amount  decimal.Decimal
}

// NonFungibleHolder 表示某 NFT 资源的一个持有账户及其全部 local id
type NonFungibleHolder struct {
	Account  types.Address
	LocalIds []string
}

// HoldingsIndex 是一个批次内全部账户余额的 O(1) 查找索引。
// 由编排层在批量抓取后一次性构建，批内只读共享，批结束即丢弃。
type HoldingsIndex struct {
	accounts []types.Address

	// account → resource → amount
	fungibles map[types.Address]map[types.Address]decimal.Decimal
	// resource → 持有者（保持网关返回顺序，结果确定）
	fungibleHolders map[types.Address][]FungibleHolder

	// account → resource → local ids
	nonFungibles map[types.Address]map[types.Address][]string
	// resource → 持有者
	nonFungibleHolders map[types.Address][]NonFungibleHolder
}

// BuildHoldingsIndex 由批量抓取结果构建索引。
// accounts 必须是本批次的完整地址列表，零持仓账户也要占位。
func BuildHoldingsIndex(
	accounts []types.Address,
	fungibles []gateway.FungibleBalance,
	nonFungibles []gateway.NonFungibleHolding,
) *HoldingsIndex {
	idx := &HoldingsIndex{
		accounts:           accounts,
		fungibles:          make(map[types.Address]map[types.Address]decimal.Decimal, len(accounts)),
		fungibleHolders:    make(map[types.Address][]FungibleHolder),
		nonFungibles:       make(map[types.Address]map[types.Address][]string, len(accounts)),
		nonFungibleHolders: make(map[types.Address][]NonFungibleHolder),
	}

	for _, b := range fungibles {
		m, ok := idx.fungibles[b.Account]
		if !ok {
			m = make(map[types.Address]decimal.Decimal)
			idx.fungibles[b.Account] = m
		}
		m[b.Resource] = b.Amount
		idx.fungibleHolders[b.Resource] = append(idx.fungibleHolders[b.Resource], FungibleHolder{
			Account: b.Account,
			Amount:  b.Amount,
		})
	}

	for _, h := range nonFungibles {
		if len(h.LocalIds) == 0 {
			continue
		}
		m, ok := idx.nonFungibles[h.Account]
		if !ok {
			m = make(map[types.Address][]string)
			idx.nonFungibles[h.Account] = m
		}
		m[h.Resource] = h.LocalIds
		idx.nonFungibleHolders[h.Resource] = append(idx.nonFungibleHolders[h.Resource], NonFungibleHolder{
			Account:  h.Account,
			LocalIds: h.LocalIds,
		})
	}
	return idx
}

// Accounts 返回本批次的完整地址列表
func (idx *HoldingsIndex) Accounts() []types.Address {
	return idx.accounts
}

// FungibleAmount 返回账户对某资源的余额，未持有返回 0
func (idx *HoldingsIndex) FungibleAmount(account, resource types.Address) decimal.Decimal {
	if m, ok := idx.fungibles[account]; ok {
		if v, ok := m[resource]; ok {
			return v
		}
	}
	return decimal.Zero
}

// FungibleBalancesOf 返回账户的全部可分资源余额
func (idx *HoldingsIndex) FungibleBalancesOf(account types.Address) map[types.Address]decimal.Decimal {
	return idx.fungibles[account]
}

// HoldersOf 返回持有某资源的全部账户及余额
func (idx *HoldingsIndex) HoldersOf(resource types.Address) []FungibleHolder {
	return idx.fungibleHolders[resource]
}

// NonFungibleIds 返回账户在某 NFT 资源下持有的 local id 列表
func (idx *HoldingsIndex) NonFungibleIds(account, resource types.Address) []string {
	if m, ok := idx.nonFungibles[account]; ok {
		return m[resource]
	}
	return nil
}

// NonFungibleHoldingsOf 返回账户的全部 NFT 持仓
func (idx *HoldingsIndex) NonFungibleHoldingsOf(account types.Address) map[types.Address][]string {
	return idx.nonFungibles[account]
}

// NonFungibleHoldersOf 返回持有某 NFT 资源的全部账户及其 local id
func (idx *HoldingsIndex) NonFungibleHoldersOf(resource types.Address) []NonFungibleHolder {
	return idx.nonFungibleHolders[resource]
}
