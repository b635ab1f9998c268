package utils

import (
	"hash/fnv"

	"defi-snapshot-xrd/internal/types"
)

// PartitionForAddress 按账户地址哈希选择分区，保证同一账户的快照落在同一分区。
// 非加密哈希，仅适合负载均匀场景。
func PartitionForAddress(addr types.Address, mod int32) int32 {
	if mod <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(addr))
	return int32(h.Sum32() % uint32(mod))
}
