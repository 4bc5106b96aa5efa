// File: pool/bufferpool.go
// Package pool provides a size-classed, reusable api.Buffer pool.
//
// One pool instance, bucketed by size class: requests range from a few
// bytes (protocol control frames) to send_buffer_max_len chunks (file/REST
// streaming), and a single free list would thrash.
package pool

import (
	"sync"

	"github.com/embedserve/emhttpd/api"
)

// sizeClasses are the bucket boundaries; Get rounds a requested size up to
// the first class that fits. Chosen to cover control-frame-sized reads
// (64B), typical header/body chunks (1-4KiB), and large file/REST chunks
// up to 64KiB, the default send_buffer_max_len.
var sizeClasses = []int{64, 256, 1024, 4096, 16384, 65536}

func classFor(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}

// BufferPool is a fixed set of size-classed free lists, each a bounded
// channel acting as a FIFO free list that drops a released buffer when full.
type BufferPool struct {
	mu      sync.Mutex
	classes map[int]chan api.Buffer

	totalAlloc int64
	totalFree  int64
}

// classCapacity bounds how many buffers of one size class are retained;
// beyond this, Put drops the buffer for the GC to reclaim rather than
// growing memory use without bound.
const classCapacity = 256

// NewBufferPool constructs an empty pool; free lists are created lazily
// per size class on first use.
func NewBufferPool() *BufferPool {
	return &BufferPool{classes: make(map[int]chan api.Buffer)}
}

func (p *BufferPool) channelFor(class int) chan api.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.classes[class]
	if !ok {
		ch = make(chan api.Buffer, classCapacity)
		p.classes[class] = ch
	}
	return ch
}

// Get returns a buffer of at least size bytes, reused from the matching
// size class's free list when available.
func (p *BufferPool) Get(size int) api.Buffer {
	class := classFor(size)
	ch := p.channelFor(class)
	select {
	case buf := <-ch:
		p.addFree(-1)
		return buf.Slice(0, size)
	default:
	}
	p.addAlloc(1)
	return api.Buffer{Data: make([]byte, size, class), Pool: p, Class: class}
}

// Put returns a buffer to its size class's free list; if the class's free
// list is at capacity the buffer is dropped for GC rather than growing the
// pool without bound.
func (p *BufferPool) Put(b api.Buffer) {
	if b.Class == 0 || cap(b.Data) < b.Class {
		return
	}
	full := b.Data[:cap(b.Data)][:b.Class]
	ch := p.channelFor(b.Class)
	select {
	case ch <- api.Buffer{Data: full, Pool: p, Class: b.Class}:
		p.addFree(1)
	default:
	}
}

func (p *BufferPool) addAlloc(n int64) {
	p.mu.Lock()
	p.totalAlloc += n
	p.mu.Unlock()
}

func (p *BufferPool) addFree(n int64) {
	p.mu.Lock()
	p.totalFree += n
	p.mu.Unlock()
}

// Stats returns a snapshot of allocation counters.
func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.BufferPoolStats{
		TotalAlloc: p.totalAlloc,
		TotalFree:  p.totalFree,
		InUse:      p.totalAlloc - p.totalFree,
	}
}

var _ api.BufferPool = (*BufferPool)(nil)

var (
	defaultOnce sync.Once
	defaultPool *BufferPool
)

// Default returns a process-wide BufferPool for callers that don't supply
// their own.
func Default() *BufferPool {
	defaultOnce.Do(func() { defaultPool = NewBufferPool() })
	return defaultPool
}
