// Package queue implements the single-producer/single-consumer byte ring
// that carries encoded log records from a producer thread to the backend.
//
// A Ring is a fixed-capacity, power-of-two sized byte buffer with two
// monotonically increasing cursors: W (write, producer-owned) and R (read,
// consumer-owned). The producer reserves space, writes the payload, then
// commits by advancing W with release semantics; the consumer loads W with
// acquire semantics, reads [R, W), and advances R with release semantics so
// the producer can observe freed space with an acquire load. No lock is
// taken on either side.
package queue

import (
	"sync/atomic"
)

// fullError is the sentinel error for a ring that cannot satisfy a
// reservation, either because it is genuinely full or because the
// reservation would straddle the physical end of the backing array.
type fullError struct{}

func (fullError) Error() string { return "queue: ring full" }

// ErrFull is returned by Reserve when the ring does not currently have a
// contiguous n-byte span available.
var ErrFull error = fullError{}

// Ring is a lock-free SPSC byte ring buffer. Zero value is not usable; use
// NewRing.
type Ring struct {
	buf  []byte
	mask uint64

	// w is advanced only by the producer, with release ordering on Commit.
	w atomic.Uint64
	// r is advanced only by the consumer, with release ordering on Consume.
	r atomic.Uint64

	// cachedR is the producer's last observed value of r, used to avoid an
	// atomic load on every Reserve when there is obviously enough room.
	cachedR uint64
}

// NewRing allocates a ring of the given capacity, rounded up to the next
// power of two. Minimum capacity is 64 bytes.
func NewRing(capacity int) *Ring {
	if capacity < 64 {
		capacity = 64
	}
	size := nextPowerOfTwo(uint64(capacity))
	return &Ring{
		buf:  make([]byte, size),
		mask: size - 1,
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}

// Cap returns the ring's total byte capacity.
func (q *Ring) Cap() int { return len(q.buf) }

// TailSpace reports the contiguous bytes remaining before the physical end
// of the backing array, from the producer's current write cursor. It is
// producer-side only.
func (q *Ring) TailSpace() int {
	size := uint64(len(q.buf))
	start := q.w.Load() & q.mask
	return int(size - start)
}

// Reserve returns a writable slice of length n at the current write cursor.
// The caller must fully populate the slice and call Commit(n) before any
// other producer-side call. Reserve does not advance the write cursor and
// never allocates.
//
// Reserve refuses a reservation that would straddle the physical end of the
// buffer, returning ErrFull even if the ring's total free space would
// otherwise suffice; callers needing to cross that boundary use TailSpace
// to pad up to it first (see Queue, which does this transparently).
func (q *Ring) Reserve(n int) ([]byte, error) {
	size := uint64(len(q.buf))
	w := q.w.Load() // producer-owned; only this goroutine ever writes it
	free := size - (w - q.cachedR)
	if free < uint64(n) {
		q.cachedR = q.r.Load()
		free = size - (w - q.cachedR)
		if free < uint64(n) {
			return nil, ErrFull
		}
	}
	start := w & q.mask
	end := start + uint64(n)
	if end > size {
		return nil, ErrFull
	}
	return q.buf[start:end:end], nil
}

// Commit publishes n bytes previously obtained via Reserve, advancing the
// write cursor with release ordering.
func (q *Ring) Commit(n int) {
	q.w.Store(q.w.Load() + uint64(n))
}

// Peek returns the bytes available for the consumer, capped to the
// physical end of the backing array: [R, min(W, boundary)). The returned
// slice aliases the ring's backing array and is valid until the next
// Consume call advances past it.
func (q *Ring) Peek() []byte {
	w := q.w.Load() // acquire: synchronizes-with the producer's Commit store
	r := q.r.Load()
	avail := w - r
	if avail == 0 {
		return nil
	}
	start := r & q.mask
	size := uint64(len(q.buf))
	end := start + avail
	if end > size {
		end = size
	}
	return q.buf[start:end]
}

// Available reports how many bytes are currently readable across the whole
// logical stream (may exceed what a single Peek call returns, if the
// unread span straddles the physical end).
func (q *Ring) Available() int {
	w := q.w.Load()
	r := q.r.Load()
	return int(w - r)
}

// Consume advances the read cursor by n bytes, with release ordering so the
// producer's next Reserve can observe the freed space via an acquire-style
// load of R.
func (q *Ring) Consume(n int) {
	q.r.Store(q.r.Load() + uint64(n))
}

// FreeBytes reports the producer's current view of free space. Intended for
// diagnostics; not synchronized beyond the normal cursor loads.
func (q *Ring) FreeBytes() int {
	size := uint64(len(q.buf))
	w := q.w.Load()
	r := q.r.Load()
	return int(size - (w - r))
}
