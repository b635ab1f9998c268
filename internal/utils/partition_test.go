package utils

import (
	"fmt"
	"testing"

	"defi-snapshot-xrd/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestPartitionForAddress(t *testing.T) {
	addr := types.Address("account_rdx1qqalpha")

	p := PartitionForAddress(addr, 8)
	assert.GreaterOrEqual(t, p, int32(0))
	assert.Less(t, p, int32(8))

	// 同一地址稳定落在同一分区
	assert.Equal(t, p, PartitionForAddress(addr, 8))

	// mod 非法时退化为 0
	assert.Equal(t, int32(0), PartitionForAddress(addr, 0))
	assert.Equal(t, int32(0), PartitionForAddress(addr, -1))
}

func TestPartitionForAddressSpread(t *testing.T) {
	const mod = 4
	seen := make(map[int32]bool)
	for i := 0; i < 64; i++ {
		addr := types.Address(fmt.Sprintf("account_rdx1qq%04d", i))
		seen[PartitionForAddress(addr, mod)] = true
	}
	// 64 个地址应覆盖全部分区
	assert.Len(t, seen, mod)
}
