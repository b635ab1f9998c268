package gateway

import (
	"github.com/shopspring/decimal"

	"defi-snapshot-xrd/internal/sbor"
	"defi-snapshot-xrd/internal/types"
)

// Anchor 表示一次快照锚定的账本高度。解析完成后不可变，
// 同一批次内的所有网关请求必须携带同一个 Anchor。
type Anchor struct {
	StateVersion uint64
}

// Selector 把锚转换为请求体中的 at_ledger_state。
// 锚定之后只允许按 state_version 查询，绝不再用时间戳，保证跨请求高度一致。
func (a *Anchor) Selector() *ledgerStateSelector {
	return &ledgerStateSelector{StateVersion: a.StateVersion}
}

// ledgerStateSelector 是请求体里的 at_ledger_state 结构
type ledgerStateSelector struct {
	StateVersion uint64 `json:"state_version,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"` // RFC3339，仅锚解析时使用
}

// ledgerState 是所有响应都会携带的账本状态头
type ledgerState struct {
	Network      string `json:"network"`
	StateVersion uint64 `json:"state_version"`
	Epoch        uint64 `json:"epoch"`
	Timestamp    string `json:"proposer_round_timestamp"`
}

// ---- /state/entity/details ----

type entityDetailsRequest struct {
	Addresses     []string             `json:"addresses"`
	AtLedgerState *ledgerStateSelector `json:"at_ledger_state,omitempty"`
	OptIns        *detailsOptIns       `json:"opt_ins,omitempty"`
}

type detailsOptIns struct {
	ExplicitMetadata []string `json:"explicit_metadata,omitempty"`
}

type entityDetailsResponse struct {
	LedgerState ledgerState         `json:"ledger_state"`
	Items       []EntityDetailsItem `json:"items"`
}

// EntityDetailsItem 是单个实体在锚定高度的完整详情
type EntityDetailsItem struct {
	Address              string         `json:"address"`
	Details              *EntityDetails `json:"details,omitempty"`
	FungibleResources    *fungiblePage  `json:"fungible_resources,omitempty"`
	NonFungibleResources *nonFungPage   `json:"non_fungible_resources,omitempty"`
}

// EntityDetails 携带实体类型与链上状态树
type EntityDetails struct {
	Type         string      `json:"type"` // Component / FungibleResource / NonFungibleResource
	State        *sbor.Value `json:"state,omitempty"`
	TotalSupply  string      `json:"total_supply,omitempty"`
	Divisibility int32       `json:"divisibility,omitempty"`
}

type fungiblePage struct {
	Items      []fungibleItem `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	TotalCount int64          `json:"total_count"`
}

type fungibleItem struct {
	ResourceAddress           string `json:"resource_address"`
	Amount                    string `json:"amount"`
	LastUpdatedAtStateVersion uint64 `json:"last_updated_at_state_version"`
}

type nonFungPage struct {
	Items      []nonFungItem `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	TotalCount int64         `json:"total_count"`
}

type nonFungItem struct {
	ResourceAddress           string   `json:"resource_address"`
	Ids                       []string `json:"ids"`
	LastUpdatedAtStateVersion uint64   `json:"last_updated_at_state_version"`
}

// ---- /state/entity/page/{fungibles,non-fungibles} ----

type entityPageRequest struct {
	Address       string               `json:"address"`
	Cursor        string               `json:"cursor,omitempty"`
	AtLedgerState *ledgerStateSelector `json:"at_ledger_state,omitempty"`
}

// ---- /state/non-fungible/data ----

type nonFungibleDataRequest struct {
	ResourceAddress string               `json:"resource_address"`
	NonFungibleIds  []string             `json:"non_fungible_ids"`
	AtLedgerState   *ledgerStateSelector `json:"at_ledger_state,omitempty"`
}

type nonFungibleDataResponse struct {
	LedgerState ledgerState           `json:"ledger_state"`
	Items       []nonFungibleDataItem `json:"items"`
}

type nonFungibleDataItem struct {
	NonFungibleId string       `json:"non_fungible_id"`
	Data          *payloadJSON `json:"data,omitempty"`
	IsBurned      bool         `json:"is_burned"`
}

type payloadJSON struct {
	ProgrammaticJSON sbor.Value `json:"programmatic_json"`
}

// ---- /state/key-value-store/{keys,data} ----

type kvsKeysRequest struct {
	KeyValueStoreAddress string               `json:"key_value_store_address"`
	Cursor               string               `json:"cursor,omitempty"`
	AtLedgerState        *ledgerStateSelector `json:"at_ledger_state,omitempty"`
}

type kvsKeysResponse struct {
	LedgerState ledgerState  `json:"ledger_state"`
	Items       []kvsKeyItem `json:"items"`
	NextCursor  string       `json:"next_cursor,omitempty"`
}

type kvsKeyItem struct {
	Key kvsKey `json:"key"`
}

type kvsKey struct {
	ProgrammaticJSON sbor.Value `json:"programmatic_json"`
	RawHex           string     `json:"raw_hex"`
}

type kvsDataRequest struct {
	KeyValueStoreAddress string               `json:"key_value_store_address"`
	Keys                 []kvsKeyParam        `json:"keys"`
	AtLedgerState        *ledgerStateSelector `json:"at_ledger_state,omitempty"`
}

type kvsKeyParam struct {
	KeyHex string `json:"key_hex"`
}

type kvsDataResponse struct {
	LedgerState ledgerState    `json:"ledger_state"`
	Items       []kvsEntryItem `json:"items"`
}

type kvsEntryItem struct {
	Key   kvsKey       `json:"key"`
	Value *payloadJSON `json:"value,omitempty"`
}

// ---- /stream/transactions ----

type streamTransactionsRequest struct {
	AtLedgerState *ledgerStateSelector `json:"at_ledger_state,omitempty"`
	Order         string               `json:"order,omitempty"`
	LimitPerPage  int                  `json:"limit_per_page,omitempty"`
}

type streamTransactionsResponse struct {
	LedgerState ledgerState            `json:"ledger_state"`
	Items       []committedTransaction `json:"items"`
}

type committedTransaction struct {
	StateVersion   uint64 `json:"state_version"`
	RoundTimestamp string `json:"round_timestamp"`
	IntentHash     string `json:"intent_hash,omitempty"`
}

// ---- 对上层暴露的已归一化结果类型 ----

// FungibleBalance 表示某账户在锚定高度的一条可分资源余额（零余额已在源头丢弃）
type FungibleBalance struct {
	Account            types.Address
	Resource           types.Address
	Amount             decimal.Decimal
	LastUpdatedVersion uint64
}

// NonFungibleHolding 表示某账户持有的某个 NFT 资源的全部本地 id
type NonFungibleHolding struct {
	Account            types.Address
	Resource           types.Address
	LocalIds           []string
	LastUpdatedVersion uint64
}

// NonFungibleData 表示单个 NFT 的链上数据负载
type NonFungibleData struct {
	Resource types.Address
	LocalId  string
	Data     sbor.Value
	IsBurned bool
}

// KeyValueEntry 表示 key-value store 的一条已解码记录
type KeyValueEntry struct {
	Key    sbor.Value
	KeyHex string
	Value  sbor.Value
}

// ComponentState 表示组件实体在锚定高度的状态树
type ComponentState struct {
	Address types.Address
	State   sbor.Value
}
