package splat

import (
	"sync"
)

// bufferSizes are the discrete size classes for pooled scratch buffers.
// They cover PLY row buffers and ASCII token buffers.
var bufferSizes = []int{
	1 << 10,  // 1 KB
	16 << 10, // 16 KB
	64 << 10, // 64 KB
	1 << 20,  // 1 MB
	4 << 20,  // 4 MB
}

// bufferPool holds reusable scratch buffers keyed by size class. Conversion
// is allocation-heavy only in its arena; the small transient buffers cycle
// through here instead of the garbage collector.
type bufferPool struct {
	pools []*sync.Pool
}

var globalBufferPool = newBufferPool()

func newBufferPool() *bufferPool {
	p := &bufferPool{pools: make([]*sync.Pool, len(bufferSizes))}
	for i, size := range bufferSizes {
		size := size // capture for closure
		p.pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}
	return p
}

// get returns a buffer of at least size bytes. Buffers larger than the
// biggest size class are allocated directly and never pooled.
func (p *bufferPool) get(size int) []byte {
	for i, classSize := range bufferSizes {
		if size <= classSize {
			return p.pools[i].Get().([]byte)[:classSize]
		}
	}
	return make([]byte, size)
}

// put returns a buffer to its size class. Buffers that don't match a class
// exactly (grown or oversized allocations) are dropped.
func (p *bufferPool) put(buf []byte) {
	c := cap(buf)
	for i, classSize := range bufferSizes {
		if c == classSize {
			p.pools[i].Put(buf[:classSize])
			return
		}
	}
}

// getBuffer and putBuffer are the package-internal entry points to the
// process-wide pool.
func getBuffer(size int) []byte { return globalBufferPool.get(size) }
func putBuffer(buf []byte)      { globalBufferPool.put(buf) }
