package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchBuffer(t *testing.T) {
	b := newBatchBuffer()
	assert.Equal(t, 0, b.Len())

	b.Add(&BatchRecord{StateVersion: 100, BatchIndex: 0, AccountCount: 50, Status: BatchPublished})
	b.Add(&BatchRecord{StateVersion: 100, BatchIndex: 1, AccountCount: 50, Status: BatchFailed})
	assert.Equal(t, 2, b.Len())

	flushed := b.Flush()
	assert.Len(t, flushed, 2)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, uint64(100), flushed[0].StateVersion)
	assert.Equal(t, BatchFailed, flushed[1].Status)

	// flush 后缓冲区独立，不会影响已取出的切片
	b.Add(&BatchRecord{StateVersion: 101, BatchIndex: 0, AccountCount: 10, Status: BatchPublished})
	assert.Len(t, flushed, 2)
	assert.Equal(t, 1, b.Len())
}
