package progress

import (
	"sync"
)

type batchBuffer struct {
	mu     sync.Mutex
	buffer []*BatchRecord
}

func newBatchBuffer() *batchBuffer {
	return &batchBuffer{}
}

func (b *batchBuffer) Add(record *BatchRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer = append(b.buffer, record)
}

func (b *batchBuffer) Flush() []*BatchRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = nil
	return flushed
}

func (b *batchBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}
