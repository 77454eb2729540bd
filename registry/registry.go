// Package registry ties the queue, record, formatter, sinks, and backend
// packages into the call-site-facing API described in §4.7 and §6: a
// process-wide lifecycle (uninitialized -> running -> stopping -> stopped),
// idempotent logger and sink creation, and per-producer-goroutine state.
package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quillgo/quillgo/backend"
	"github.com/quillgo/quillgo/clock"
	"github.com/quillgo/quillgo/codec"
	"github.com/quillgo/quillgo/queue"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sinks"
)

type state int32

const (
	stateUninitialized state = iota
	stateRunning
	stateStopping
	stateStopped
)

// Logger is a named routing target: a minimum level threshold plus the
// ordered list of sinks its records fan out to. The threshold check
// (invariant: no bytes are encoded for a record below threshold) happens on
// the producer side via ShouldLog, before Enqueue is ever called.
type Logger struct {
	name      string
	threshold atomic.Int32
	sinkNames []string
}

// ShouldLog reports whether a record at level should be encoded at all.
func (l *Logger) ShouldLog(level record.Level) bool {
	return int32(level) >= l.threshold.Load()
}

// SetLevel changes the logger's threshold. Safe to call concurrently with
// producers calling ShouldLog.
func (l *Logger) SetLevel(level record.Level) {
	l.threshold.Store(int32(level))
}

// Name returns the logger's registered name.
func (l *Logger) Name() string { return l.name }

type sinkEntry struct {
	sink sinks.Sink
	kind string
}

// Registry is the process-wide owner of the backend loop, the logger and
// sink tables, and producer queue registration. Create one with New,
// populate it with CreateOrGet* calls, then Start it; Stop drains every
// queue and halts the backend.
type Registry struct {
	cfg     *Config
	clock   *clock.Source
	backend *backend.Backend

	state state32

	mu      sync.Mutex
	loggers map[string]*Logger
	sinks   map[string]sinkEntry

	transportStoppers []func()
	heartbeatStops    []chan struct{}

	resyncStop chan struct{}
	resyncDone chan struct{}
}

// state32 wraps atomic.Int32 so Registry's zero value still compiles (the
// atomic type itself must not be copied after first use, which is fine
// here since Registry is always used through a pointer).
type state32 struct{ v atomic.Int32 }

func (s *state32) load() state           { return state(s.v.Load()) }
func (s *state32) store(v state)         { s.v.Store(int32(v)) }
func (s *state32) cas(old, new state) bool {
	return s.v.CompareAndSwap(int32(old), int32(new))
}

// New creates a Registry from cfg. The backend is constructed but not
// started; call Start to begin draining producer queues.
func New(cfg *Config) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	src := clock.NewSource()

	r := &Registry{
		cfg:     cfg,
		clock:   src,
		loggers: make(map[string]*Logger),
		sinks:   make(map[string]sinkEntry),
	}

	opts := backend.DefaultOptions()
	opts.SleepMin = time.Duration(cfg.SleepDurationMinUs) * time.Microsecond
	opts.SleepMax = time.Duration(cfg.SleepDurationMaxMs) * time.Millisecond
	opts.ToWall = src.ToWall
	r.backend = backend.New(r, opts)
	return r
}

// Resolve implements backend.LoggerResolver.
func (r *Registry) Resolve(name string, level record.Level) ([]sinks.Sink, bool) {
	r.mu.Lock()
	lg, ok := r.loggers[name]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	out := make([]sinks.Sink, 0, len(lg.sinkNames))
	for _, sn := range lg.sinkNames {
		if se, ok := r.sinks[sn]; ok {
			out = append(out, se.sink)
		}
	}
	r.mu.Unlock()
	return out, true
}

// Start transitions the registry from uninitialized to running: the
// backend consumer loop begins, and a resync goroutine periodically
// recalibrates the monotonic-to-wall clock mapping per
// rdtsc_resync_interval_s.
func (r *Registry) Start() error {
	if !r.state.cas(stateUninitialized, stateRunning) {
		return fmt.Errorf("quillgo: registry already started")
	}
	r.backend.Start()

	r.resyncStop = make(chan struct{})
	r.resyncDone = make(chan struct{})
	interval := time.Duration(r.cfg.RDTSCResyncIntervalS) * time.Second
	go r.resyncLoop(interval)
	return nil
}

func (r *Registry) resyncLoop(interval time.Duration) {
	defer close(r.resyncDone)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-r.resyncStop:
			return
		case <-t.C:
			r.clock.Resync()
		}
	}
}

// RegisterTransportStopper records a shutdown hook (e.g. a gnet/fasthttp
// server's graceful-stop function) to run alongside the backend drain when
// Stop is called.
func (r *Registry) RegisterTransportStopper(stop func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transportStoppers = append(r.transportStoppers, stop)
}

// Stop requests an orderly shutdown: the backend drains every queue and
// every registered transport stopper runs, bounded by shutdown_timeout_ms.
// If the bound expires first, Stop returns an error and the drain continues
// in the background; records that hadn't been dispatched by then are
// eventually drained and counted via Backend.DrainedCount, never silently
// lost, but Stop itself no longer waits for them.
func (r *Registry) Stop() error {
	if !r.state.cas(stateRunning, stateStopping) {
		return fmt.Errorf("quillgo: registry not running")
	}

	if r.resyncStop != nil {
		close(r.resyncStop)
	}
	r.stopHeartbeats()

	var g errgroup.Group
	g.Go(func() error {
		r.backend.Stop()
		return nil
	})

	r.mu.Lock()
	stoppers := append([]func(){}, r.transportStoppers...)
	r.mu.Unlock()
	for _, stop := range stoppers {
		stop := stop
		g.Go(func() error { stop(); return nil })
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	timeout := time.Duration(r.cfg.ShutdownTimeoutMs) * time.Millisecond
	select {
	case err := <-done:
		r.state.store(stateStopped)
		return err
	case <-time.After(timeout):
		r.state.store(stateStopped)
		return fmt.Errorf("quillgo: shutdown timed out after %s, drain continuing in background", timeout)
	}
}

// CreateOrGetLogger returns the named logger, creating it with the given
// sink names and initial level if it does not already exist. A repeat call
// with the same name is idempotent and returns the existing logger
// unchanged, matching the registry's create-or-get contract; use SetLevel
// to change an existing logger's threshold.
func (r *Registry) CreateOrGetLogger(name string, sinkNames []string, level record.Level) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lg, ok := r.loggers[name]; ok {
		return lg
	}
	lg := &Logger{name: name, sinkNames: append([]string(nil), sinkNames...)}
	lg.threshold.Store(int32(level))
	r.loggers[name] = lg
	return lg
}

// GetLogger returns the named logger, if it exists.
func (r *Registry) GetLogger(name string) (*Logger, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lg, ok := r.loggers[name]
	return lg, ok
}

// CreateOrGetSink returns the named sink, building it with build if it does
// not already exist. A second call with the same name but a different kind
// is an error (the registry never silently swaps a sink's type underneath
// existing loggers that reference it by name).
func (r *Registry) CreateOrGetSink(name, kind string, build func() (sinks.Sink, error)) (sinks.Sink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if se, ok := r.sinks[name]; ok {
		if se.kind != kind {
			return nil, fmt.Errorf("quillgo: sink %q already registered as %q, requested %q", name, se.kind, kind)
		}
		return se.sink, nil
	}
	s, err := build()
	if err != nil {
		return nil, fmt.Errorf("quillgo: create sink %q: %w", name, err)
	}
	r.sinks[name] = sinkEntry{sink: s, kind: kind}
	r.backend.TrackSink(s)
	return s, nil
}

// GetSink returns the named sink, if it exists.
func (r *Registry) GetSink(name string) (sinks.Sink, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	se, ok := r.sinks[name]
	return se.sink, ok
}

// Stats is a point-in-time snapshot of backend throughput counters, used by
// the heartbeat summary and the optional operational transports
// (transport/gnetserver, transport/httpstats).
type Stats struct {
	Drained uint64
	// Dropped is the total record loss: QueueFull overflow drops (§7,
	// producers logging faster than the backend under the Drop policy)
	// plus records that reached the backend but named an unresolvable
	// logger. QueueDropped below breaks out the first component alone.
	Dropped uint64
	// QueueDropped is the QueueFull component of Dropped: records a
	// producer's queue discarded under the Drop overflow policy because
	// reserve found no room, aggregated from every registered queue as of
	// the most recent housekeeping or FlushAll pass.
	QueueDropped uint64
	Loggers      int
	Sinks        int
}

// Stats returns the current backend counters plus the registry's table
// sizes.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	loggers, sinkCount := len(r.loggers), len(r.sinks)
	r.mu.Unlock()
	queueDropped := r.backend.QueueDroppedCount()
	return Stats{
		Drained:      r.backend.DrainedCount(),
		Dropped:      r.backend.DroppedCount() + queueDropped,
		QueueDropped: queueDropped,
		Loggers:      loggers,
		Sinks:        sinkCount,
	}
}

// FlushAll forces every tracked sink to flush immediately, bypassing the
// backend's normal housekeeping interval. Intended for the operational
// transports and for tests that need deterministic output without waiting
// for the next housekeeping pass.
func (r *Registry) FlushAll() {
	r.backend.FlushAll()
}

func overflowPolicy(name string) (queue.OverflowPolicy, error) {
	switch name {
	case "block":
		return queue.Block, nil
	case "drop":
		return queue.Drop, nil
	case "unbounded":
		return queue.Unbounded, nil
	default:
		return 0, fmt.Errorf("quillgo: unknown overflow_policy %q", name)
	}
}

// Producer is one call-site goroutine's enqueue path: its own queue (single
// producer, single consumer, per §2), a reusable codec.Scratch to avoid
// allocating a size cache per record, and a goroutine id cached once at
// creation rather than recomputed per record.
type Producer struct {
	reg      *Registry
	q        *queue.Queue
	scratch  codec.Scratch
	threadID int64
}

// NewProducer creates a Producer and registers its queue with the
// registry's backend. Intended to be created once per goroutine that logs
// (e.g. stashed in a sync.Pool or goroutine-local convention at the
// call-site layer) and reused for every subsequent call from that
// goroutine.
func (r *Registry) NewProducer() (*Producer, error) {
	policy, err := overflowPolicy(r.cfg.OverflowPolicy)
	if err != nil {
		return nil, err
	}
	q := queue.NewQueue(int(r.cfg.QueueCapacity), policy)
	r.backend.AddQueue(q)
	return &Producer{reg: r, q: q, threadID: goroutineID()}, nil
}

// Log encodes and enqueues one record at level, tagged with the given
// metadata handle, timestamped with the producer's monotonic clock reading.
// It returns an error only under the Drop overflow policy when the queue
// had no room; Block busy-waits instead, and Unbounded always succeeds.
func (p *Producer) Log(level record.Level, h record.Handle, args ...any) error {
	return record.Enqueue(p.q, &p.scratch, clock.Now(), level, h, p.threadID, args)
}

// FlushSync blocks until this producer's queue has been fully drained by
// the backend, or timeout elapses first, in which case it returns false.
func (p *Producer) FlushSync(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, ok := p.q.Peek(); !ok {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
