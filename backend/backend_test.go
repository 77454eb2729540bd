package backend

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillgo/quillgo/codec"
	"github.com/quillgo/quillgo/queue"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sinks"
)

var errWriteFailed = errors.New("sink write failed")

// collectingSink records each record's first argument, in dispatch order,
// for test assertions.
type collectingSink struct {
	mu   sync.Mutex
	seen []int64
}

func (s *collectingSink) WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, args[0].(int64))
	return nil
}
func (s *collectingSink) Flush() error          { return nil }
func (s *collectingSink) RotateIfNeeded() error { return nil }

func (s *collectingSink) snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.seen...)
}

// staticResolver always resolves every logger name to the same sink list.
type staticResolver struct {
	sink sinks.Sink
}

func (r *staticResolver) Resolve(name string, level record.Level) ([]sinks.Sink, bool) {
	return []sinks.Sink{r.sink}, true
}

func TestBackendDrainsSingleQueueInOrder(t *testing.T) {
	h := record.Register(&record.Metadata{Template: "seq", LoggerName: "root"})
	q := queue.NewQueue(4096, queue.Block)
	var scratch codec.Scratch

	for i := 0; i < 50; i++ {
		require.NoError(t, record.Enqueue(q, &scratch, int64(i), record.LevelInfo, h, 1, []any{int64(i)}))
	}

	sink := &collectingSink{}
	b := New(&staticResolver{sink: sink}, DefaultOptions())
	b.AddQueue(q)
	b.Start()

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 50
	}, time.Second, time.Millisecond)

	b.Stop()
	assert.Equal(t, uint64(50), b.DrainedCount())

	seen := sink.snapshot()
	for i, v := range seen {
		assert.Equal(t, int64(i), v)
	}
}

func TestBackendSelectsSmallestTimestampAcrossQueues(t *testing.T) {
	h := record.Register(&record.Metadata{Template: "seq"})

	q1 := queue.NewQueue(4096, queue.Block)
	q2 := queue.NewQueue(4096, queue.Block)
	var scratch1, scratch2 codec.Scratch

	require.NoError(t, record.Enqueue(q1, &scratch1, 200, record.LevelInfo, h, 1, []any{"from-q1"}))
	require.NoError(t, record.Enqueue(q2, &scratch2, 100, record.LevelInfo, h, 2, []any{"from-q2"}))

	var order []string
	var mu sync.Mutex
	sink := sinkFunc(func(hdr record.Header, meta *record.Metadata, args []any) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, args[0].(string))
		return nil
	})

	b := New(&staticResolver{sink: sink}, DefaultOptions())
	b.AddQueue(q1)
	b.AddQueue(q2)
	b.Start()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"from-q2", "from-q1"}, order)
}

func TestBackendDropsUnresolvableLogger(t *testing.T) {
	h := record.Register(&record.Metadata{Template: "seq", LoggerName: "ghost"})
	q := queue.NewQueue(4096, queue.Block)
	var scratch codec.Scratch
	require.NoError(t, record.Enqueue(q, &scratch, 1, record.LevelInfo, h, 1, []any{int64(1)}))

	b := New(&nilResolver{}, DefaultOptions())
	b.AddQueue(q)
	b.Start()

	require.Eventually(t, func() bool {
		return b.DroppedCount() == 1
	}, time.Second, time.Millisecond)
	b.Stop()
}

type nilResolver struct{}

func (nilResolver) Resolve(name string, level record.Level) ([]sinks.Sink, bool) { return nil, false }

// sinkFunc adapts a function to the sinks.Sink interface for tests.
type sinkFunc func(hdr record.Header, meta *record.Metadata, args []any) error

func (f sinkFunc) WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error {
	return f(hdr, meta, args)
}
func (sinkFunc) Flush() error          { return nil }
func (sinkFunc) RotateIfNeeded() error { return nil }

func TestBackendAggregatesQueueOverflowDrops(t *testing.T) {
	q := queue.NewQueue(64, queue.Drop)
	for i := 0; i < 100; i++ {
		slot, err := q.Reserve(16)
		if err != nil {
			continue
		}
		copy(slot, []byte("0123456789abcdef"))
		q.Commit()
	}
	// Queue.Dropped resets its own counter on read; confirm the overflow
	// actually happened, then let the backend's own collection pass pick up
	// whatever accumulates from here on.
	require.Greater(t, q.Dropped(), uint64(0), "setup must actually overflow the queue")
	for i := 0; i < 100; i++ {
		slot, err := q.Reserve(16)
		if err != nil {
			continue
		}
		copy(slot, []byte("0123456789abcdef"))
		q.Commit()
	}

	opts := DefaultOptions()
	opts.HousekeepingInterval = time.Millisecond
	b := New(&nilResolver{}, opts)
	b.AddQueue(q)
	b.Start()

	require.Eventually(t, func() bool {
		return b.QueueDroppedCount() > 0
	}, time.Second, time.Millisecond)
	b.Stop()
}

func TestBackendRoutesSinkWriteErrorsToOnError(t *testing.T) {
	h := record.Register(&record.Metadata{Template: "seq", LoggerName: "root"})
	q := queue.NewQueue(4096, queue.Block)
	var scratch codec.Scratch
	require.NoError(t, record.Enqueue(q, &scratch, 1, record.LevelInfo, h, 1, []any{int64(1)}))

	failing := sinkFunc(func(hdr record.Header, meta *record.Metadata, args []any) error {
		return errWriteFailed
	})

	var mu sync.Mutex
	var got error
	opts := DefaultOptions()
	opts.OnError = func(err error) {
		mu.Lock()
		defer mu.Unlock()
		got = err
	}

	b := New(&staticResolver{sink: failing}, opts)
	b.AddQueue(q)
	b.Start()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, time.Second, time.Millisecond)
	b.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, got, errWriteFailed)
}
