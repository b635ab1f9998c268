package consts

import "runtime"

const (
	// NetworkIDMainnet 主网网络号（网关响应中的 ledger_state.network 对应值）
	NetworkIDMainnet uint32 = 1
)

// CpuCount 表示逻辑 CPU 核心数，用于控制并发任务调度上限
var CpuCount = runtime.NumCPU()

// 网关分页请求的固定上限（超过会被网关拒绝）
const (
	EntityDetailsChunkSize   = 20  // /state/entity/details 单次最多地址数
	NonFungibleDataChunkSize = 100 // /state/non-fungible/data 单次最多 id 数
	KeyValueStoreChunkSize   = 100 // /state/key-value-store/data 单次最多 key 数
)

// 默认并发与批量参数（可被配置覆盖）
const (
	DefaultChunkConcurrency = 10    // 同时在途的分块请求数
	DefaultBatchSize        = 10000 // 单批处理的账户数上限
)
