package yuv

import "sync"

// BufferPool is a thread-safe pool of packed NV21 buffers.
//
// Buffers are grouped by length so that frames of the same dimensions reuse
// the same backing arrays. Pooled buffers are not cleared: ConvertInto
// overwrites every byte.
//
// Thread safety: All methods are safe for concurrent use.
type BufferPool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max buffers per bucket
}

// NewBufferPool creates a pool retaining at most maxPerBucket buffers of each
// size. A maxPerBucket of 0 means unlimited.
func NewBufferPool(maxPerBucket int) *BufferPool {
	return &BufferPool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get returns a buffer of PackedSize(width, height) bytes, reusing a pooled
// one when available.
func (p *BufferPool) Get(width, height int) []byte {
	size := PackedSize(width, height)
	if size <= 0 {
		return nil
	}

	p.mu.Lock()
	bucket := p.buckets[size]
	if n := len(bucket); n > 0 {
		buf := bucket[n-1]
		bucket[n-1] = nil
		p.buckets[size] = bucket[:n-1]
		p.mu.Unlock()
		return buf
	}
	p.mu.Unlock()

	return make([]byte, size)
}

// Put returns buf to the pool. Nil or empty buffers are ignored, and buffers
// are discarded once their bucket is full.
func (p *BufferPool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[len(buf)]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[len(buf)] = append(bucket, buf)
}

// Len returns the number of pooled buffers across all sizes.
func (p *BufferPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
