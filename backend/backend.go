// Package backend implements the single consumer loop described in §4.6:
// it polls every registered producer queue, selects the record with the
// smallest timestamp across them, decodes it, formats it through its
// logger's sinks, and performs periodic housekeeping (flush, rotation,
// queue drop-counter collection) between drain passes.
package backend

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quillgo/quillgo/queue"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sinks"
)

// internalLog is the default backend-error handler (§7's
// propagate_to_backend_error_handler policy): it writes a single
// diagnostic line to stderr for a SinkIOError-class failure rather than
// letting it halt the backend or propagate to a producer.
func internalLog(err error) {
	fmt.Fprintln(os.Stderr, "quillgo:", err)
}

// LoggerResolver maps a record's logger handle to the sinks it should fan
// out to and whether the record passes that logger's level threshold. The
// registry satisfies this; backend never imports registry to avoid an
// import cycle (registry constructs and owns the Backend).
type LoggerResolver interface {
	Resolve(name string, level record.Level) (out []sinks.Sink, ok bool)
}

// Options configures the backend loop, adapted from the teacher's
// goroutine-per-backend idiom and named after §6's backend configuration
// keys.
type Options struct {
	// SleepMin/SleepMax bound the idle back-off: after a pass that drained
	// nothing, the backend sleeps starting at SleepMin and doubles up to
	// SleepMax until a queue has data again.
	SleepMin time.Duration
	SleepMax time.Duration
	// StrictOrder forces a full cross-queue timestamp comparison every
	// pass (the default); when false, the backend drains a queue fully
	// before checking others, trading strict global ordering for less
	// per-record overhead under many producers.
	StrictOrder bool
	// HousekeepingInterval is how often Flush+RotateIfNeeded run across
	// all sinks between drain passes.
	HousekeepingInterval time.Duration
	// ToWall converts a record's monotonic timestamp to wall-clock
	// nanoseconds before it reaches a sink (§4.3's affine mapping). Nil
	// passes the record's timestamp through unchanged.
	ToWall func(int64) int64
	// OnError receives every SinkIOError (§7): a sink's WriteRecord,
	// Flush, or RotateIfNeeded failure. A single failing sink never halts
	// the backend or the other sinks in its dispatch list; nil disables
	// reporting entirely.
	OnError func(error)
}

// DefaultOptions mirrors the teacher's conservative defaults.
func DefaultOptions() Options {
	return Options{
		SleepMin:             50 * time.Microsecond,
		SleepMax:             5 * time.Millisecond,
		StrictOrder:          true,
		HousekeepingInterval: time.Second,
		OnError:              internalLog,
	}
}

// producerQueue is one registered producer's queue; routing its decoded
// records goes through the Backend's resolver.
type producerQueue struct {
	q *queue.Queue
}

// Backend is the process-wide single consumer. It is not safe for
// concurrent Start/Stop calls, matching the teacher's single-owner
// lifecycle idiom.
type Backend struct {
	opts     Options
	resolver LoggerResolver

	mu      sync.Mutex
	queues  []*producerQueue
	sinkSet map[sinks.Sink]struct{}

	stopCh  chan struct{}
	doneCh  chan struct{}
	running atomic.Bool
	dropped atomic.Uint64
	drained atomic.Uint64
	// queueDropped accumulates each producer queue's overflow-policy drop
	// counter (QueueFull, §7), swapped out periodically during
	// housekeeping rather than read live, since Queue.Dropped itself
	// resets on read.
	queueDropped atomic.Uint64
}

// New creates a Backend; resolver is typically the registry.
func New(resolver LoggerResolver, opts Options) *Backend {
	return &Backend{
		opts:     opts,
		resolver: resolver,
		sinkSet:  make(map[sinks.Sink]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// AddQueue registers a producer queue for draining. Safe to call before or
// after Start.
func (b *Backend) AddQueue(q *queue.Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = append(b.queues, &producerQueue{q: q})
}

// TrackSink registers a sink so periodic housekeeping flushes/rotates it
// even if no record currently targets it this pass.
func (b *Backend) TrackSink(s sinks.Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinkSet[s] = struct{}{}
}

// Start runs the consumer loop on the calling goroutine's behalf in a new
// goroutine, returning immediately. Call Stop to request an orderly
// shutdown that drains every queue before returning.
func (b *Backend) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	go b.run()
}

// Stop requests shutdown and blocks until the backend has drained every
// queue and exited its loop (§4.6 shutdown phase).
func (b *Backend) Stop() {
	if !b.running.Load() {
		return
	}
	close(b.stopCh)
	<-b.doneCh
}

// DrainedCount reports how many records this backend has dispatched.
func (b *Backend) DrainedCount() uint64 { return b.drained.Load() }

// DroppedCount reports how many records were dropped for lacking a
// resolvable logger (stale metadata handle, or logger removed).
func (b *Backend) DroppedCount() uint64 { return b.dropped.Load() }

// QueueDroppedCount reports how many records producers have dropped under
// the Drop overflow policy (QueueFull, §7), aggregated from every
// registered queue as of the most recent housekeeping pass.
func (b *Backend) QueueDroppedCount() uint64 { return b.queueDropped.Load() }

func (b *Backend) run() {
	defer close(b.doneCh)

	sleep := b.opts.SleepMin
	lastHousekeeping := time.Now()

	stopping := false
	for {
		select {
		case <-b.stopCh:
			stopping = true
		default:
		}

		n := b.drainPass()

		if now := time.Now(); now.Sub(lastHousekeeping) >= b.opts.HousekeepingInterval {
			b.housekeep()
			lastHousekeeping = now
		}

		if n == 0 {
			if stopping {
				b.FlushAll()
				return
			}
			time.Sleep(sleep)
			sleep *= 2
			if sleep > b.opts.SleepMax {
				sleep = b.opts.SleepMax
			}
			continue
		}
		sleep = b.opts.SleepMin
	}
}

// drainPass runs one snapshot/select/format/dispatch/advance cycle (§4.6
// steps 1-5) and returns the number of records dispatched.
func (b *Backend) drainPass() int {
	b.mu.Lock()
	queues := append([]*producerQueue(nil), b.queues...)
	b.mu.Unlock()

	if len(queues) == 0 {
		return 0
	}

	dispatched := 0
	if b.opts.StrictOrder {
		for {
			idx, hdr, ok := selectOldest(queues)
			if !ok {
				break
			}
			b.dispatchOne(queues[idx].q, hdr)
			dispatched++
		}
		return dispatched
	}

	for _, pq := range queues {
		for {
			hdr, ok := record.PeekHeader(pq.q)
			if !ok {
				break
			}
			b.dispatchOne(pq.q, hdr)
			dispatched++
		}
	}
	return dispatched
}

// selectOldest peeks every queue's next header and returns the index and
// header of the one with the smallest timestamp.
func selectOldest(queues []*producerQueue) (int, record.Header, bool) {
	best := -1
	var bestHdr record.Header
	for i, pq := range queues {
		hdr, ok := record.PeekHeader(pq.q)
		if !ok {
			continue
		}
		if best == -1 || hdr.Timestamp < bestHdr.Timestamp {
			best = i
			bestHdr = hdr
		}
	}
	if best == -1 {
		return 0, record.Header{}, false
	}
	return best, bestHdr, true
}

// dispatchOne decodes and formats the next record on q (already known, via
// hdr, to be the one to process this iteration) and writes it to every
// sink its logger resolves to.
func (b *Backend) dispatchOne(q *queue.Queue, hdr record.Header) {
	decodedHdr, meta, args, ok := record.DecodeNext(q)
	if !ok {
		return
	}
	_ = hdr // hdr was only used for selection; decodedHdr is authoritative

	if b.opts.ToWall != nil {
		decodedHdr.Timestamp = b.opts.ToWall(decodedHdr.Timestamp)
	}

	out, ok := b.resolver.Resolve(meta.LoggerName, decodedHdr.Level)
	if !ok {
		b.dropped.Add(1)
		return
	}
	for _, s := range out {
		if err := s.WriteRecord(decodedHdr, meta, args); err != nil {
			b.handleError(fmt.Errorf("sink write: %w", err))
		}
	}
	b.drained.Add(1)
}

// handleError reports a SinkIOError (§7) to the configured OnError handler,
// defaulting to internalLog. A failing sink is never allowed to halt the
// backend loop or propagate to the producer that logged the record.
func (b *Backend) handleError(err error) {
	if b.opts.OnError != nil {
		b.opts.OnError(err)
	}
}

// collectQueueDrops sweeps every registered queue's overflow-policy drop
// counter (QueueFull, §7) into the backend's running total. Queue.Dropped
// resets its own counter on read, so this must run periodically rather
// than be read live from QueueDroppedCount.
func (b *Backend) collectQueueDrops() {
	b.mu.Lock()
	queues := append([]*producerQueue(nil), b.queues...)
	b.mu.Unlock()

	for _, pq := range queues {
		if n := pq.q.Dropped(); n > 0 {
			b.queueDropped.Add(n)
		}
	}
}

// housekeep flushes and rotates every tracked sink and sweeps queue-overflow
// drop counters into queueDropped (§4.6 periodic phase).
func (b *Backend) housekeep() {
	b.collectQueueDrops()

	b.mu.Lock()
	tracked := make([]sinks.Sink, 0, len(b.sinkSet))
	for s := range b.sinkSet {
		tracked = append(tracked, s)
	}
	b.mu.Unlock()

	for _, s := range tracked {
		if err := s.Flush(); err != nil {
			b.handleError(fmt.Errorf("sink flush: %w", err))
		}
		if err := s.RotateIfNeeded(); err != nil {
			b.handleError(fmt.Errorf("sink rotate: %w", err))
		}
	}
}

// FlushAll flushes every tracked sink immediately, outside the normal
// housekeeping cadence, and sweeps queue-overflow drop counters the same
// way housekeep does. Exported for explicit flush requests (§7,
// flush_sync's backend-side counterpart and the operational transports).
func (b *Backend) FlushAll() {
	b.collectQueueDrops()

	b.mu.Lock()
	tracked := make([]sinks.Sink, 0, len(b.sinkSet))
	for s := range b.sinkSet {
		tracked = append(tracked, s)
	}
	b.mu.Unlock()

	for _, s := range tracked {
		if err := s.Flush(); err != nil {
			b.handleError(fmt.Errorf("sink flush: %w", err))
		}
	}
}
