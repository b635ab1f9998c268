package progress

// BatchStatus 表示某个快照批次的发布状态（Redis 与 DB 统一编码）
type BatchStatus int

const (
	BatchUnknown   BatchStatus = 0 // Redis 不存在
	BatchPublished BatchStatus = 1 // 已完整发布
	BatchFailed    BatchStatus = 2 // 明确失败，等待外部整批重试
	BatchPending   BatchStatus = 3 // 发布中（仅 Redis 用）
)

// BatchRecord 表示一条待写入 DB 的批次进度记录。
// 批次由 (锚定高度, 批次序号) 唯一确定；批内不做部分检查点，
// 外部重试以整批为单位跳过已发布的批次。
type BatchRecord struct {
	StateVersion uint64      // 锚定的账本高度
	BatchIndex   int         // 地址列表里的批次序号
	AccountCount int         // 本批地址数
	Status       BatchStatus // 1=已发布，2=失败
}
