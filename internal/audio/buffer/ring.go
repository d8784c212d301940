// Package buffer provides the byte ring the render callback pulls from.
// One producer (the decoder feeder) and one consumer (the hardware render
// callback) share it without locks: the indices are atomics and each side
// only writes its own.
package buffer

import "sync/atomic"

// Ring is a single-producer single-consumer byte ring buffer. Read never
// blocks; Write never blocks and reports how much fit.
type Ring struct {
	buf  []byte
	size int64

	// head is the next byte to read, tail the next byte to write. Both
	// grow monotonically; buf indices are taken modulo size.
	head atomic.Int64
	tail atomic.Int64
}

// NewRing creates a ring of the given capacity in bytes.
func NewRing(size int) *Ring {
	return &Ring{buf: make([]byte, size), size: int64(size)}
}

// Buffered returns the number of bytes available to read.
func (r *Ring) Buffered() int {
	return int(r.tail.Load() - r.head.Load())
}

// Free returns the number of bytes that can be written without dropping.
func (r *Ring) Free() int {
	return int(r.size) - r.Buffered()
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return int(r.size)
}

// Write copies as much of p as fits and returns the number of bytes
// accepted. It only touches tail.
func (r *Ring) Write(p []byte) int {
	head := r.head.Load()
	tail := r.tail.Load()
	free := int(r.size - (tail - head))
	n := len(p)
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	off := int(tail % r.size)
	c := copy(r.buf[off:], p[:n])
	if c < n {
		copy(r.buf, p[c:n])
	}
	r.tail.Store(tail + int64(n))
	return n
}

// Read copies up to len(p) buffered bytes into p and returns the count.
// It only touches head and never blocks: an empty ring returns 0.
func (r *Ring) Read(p []byte) int {
	head := r.head.Load()
	tail := r.tail.Load()
	avail := int(tail - head)
	n := len(p)
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}
	off := int(head % r.size)
	c := copy(p[:n], r.buf[off:])
	if c < n {
		copy(p[c:n], r.buf)
	}
	r.head.Store(head + int64(n))
	return n
}

// ReadAudio implements the non-blocking pull contract of the output
// backends.
func (r *Ring) ReadAudio(p []byte) int {
	return r.Read(p)
}

// Reset discards all buffered data. Producer-side only; do not call while
// the consumer is running.
func (r *Ring) Reset() {
	r.head.Store(r.tail.Load())
}
