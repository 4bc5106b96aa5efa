// File: api/buffer.go
// Package api defines Buffer and BufferPool.
//
// Buffer is a value struct (avoiding interface boxing on the hot path)
// that releases itself back to its owning pool via an embedded reference,
// so call sites never need to know which pool a buffer came from.

package api

// Buffer is a reusable byte slice checked out from a BufferPool.
type Buffer struct {
	Data  []byte
	Pool  Releaser
	Class int // size-class bucket this buffer was allocated from
}

// Releaser returns a Buffer to its owning pool.
type Releaser interface {
	Put(Buffer)
}

// Bytes returns the full byte slice backing this Buffer.
func (b Buffer) Bytes() []byte { return b.Data }

// Copy returns an independent copy of the buffer's data.
func (b Buffer) Copy() []byte {
	dup := make([]byte, len(b.Data))
	copy(dup, b.Data)
	return dup
}

// Slice returns a new Buffer view sharing the same underlying memory.
func (b Buffer) Slice(from, to int) Buffer {
	if from < 0 || to > len(b.Data) || from > to {
		return Buffer{Pool: b.Pool, Class: b.Class}
	}
	return Buffer{Data: b.Data[from:to], Pool: b.Pool, Class: b.Class}
}

// Release returns the buffer to its pool, if any.
func (b Buffer) Release() {
	if b.Pool != nil {
		b.Pool.Put(b)
	}
}

// Capacity returns the capacity of the underlying slice.
func (b Buffer) Capacity() int { return cap(b.Data) }

// BufferPool provides reusable, size-classed buffer allocation.
type BufferPool interface {
	Get(size int) Buffer
	Put(b Buffer)
	Stats() BufferPoolStats
}

// BufferPoolStats summarizes pool usage for the control/metrics surface.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}
