// Package pool provides byte-buffer pooling for tabforge's block I/O paths.
// Buffers are bucketed by size to reduce allocation churn when the codec
// streams millions of blocks.
package pool

import (
	"sync"
)

// BufferPool manages byte buffer pooling with size-based buckets.
// It is safe for concurrent use.
type BufferPool struct {
	pools []*sync.Pool
	sizes []int
}

// NewBufferPool creates a buffer pool with power-of-2 buckets from 4KB to
// 16MB, sized for record lines at the low end and codec blocks at the top.
// Requests larger than the biggest bucket are allocated directly.
func NewBufferPool() *BufferPool {
	sizes := []int{
		4096,     // 4KB
		65536,    // 64KB
		262144,   // 256KB
		1048576,  // 1MB
		4194304,  // 4MB
		16777216, // 16MB
	}

	pools := make([]*sync.Pool, len(sizes))
	for i, size := range sizes {
		size := size
		pools[i] = &sync.Pool{
			New: func() interface{} {
				b := make([]byte, size)
				return &b
			},
		}
	}

	return &BufferPool{pools: pools, sizes: sizes}
}

// Get returns a buffer of at least the requested size, with its length set
// to the requested size.
func (p *BufferPool) Get(size int) []byte {
	for i, s := range p.sizes {
		if s >= size {
			buf := *(p.pools[i].Get().(*[]byte))
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns a buffer to its bucket. Buffers whose capacity matches no
// bucket are left to the garbage collector.
func (p *BufferPool) Put(buf []byte) {
	size := cap(buf)
	for i, s := range p.sizes {
		if s == size {
			buf = buf[:s]
			p.pools[i].Put(&buf)
			return
		}
	}
}

// Global is the shared buffer pool used by the block codec.
var Global = NewBufferPool()
