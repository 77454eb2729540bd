package queue

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingReserveCommitPeekConsume(t *testing.T) {
	r := NewRing(64)
	require.Equal(t, 64, r.Cap())

	slot, err := r.Reserve(8)
	require.NoError(t, err)
	copy(slot, []byte("hello123"))
	r.Commit(8)

	got := r.Peek()
	assert.Equal(t, "hello123", string(got))
	r.Consume(8)
	assert.Equal(t, 0, r.Available())
}

func TestRingRefusesOversizedReservation(t *testing.T) {
	r := NewRing(64)
	_, err := r.Reserve(128)
	assert.ErrorIs(t, err, ErrFull)
}

func TestQueueFramesAndWrapsAcrossBoundary(t *testing.T) {
	q := NewQueue(64, Block)

	// Fill most of the ring so the next record must wrap.
	for i := 0; i < 5; i++ {
		slot, err := q.Reserve(8)
		require.NoError(t, err)
		copy(slot, fmt.Sprintf("rec%05d", i))
		q.Commit()
	}
	for i := 0; i < 5; i++ {
		payload, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("rec%05d", i), string(payload))
		q.Consume()
	}

	// Drain-and-refill cycles exercise the wrap/pad path repeatedly.
	for round := 0; round < 50; round++ {
		slot, err := q.Reserve(10)
		require.NoError(t, err)
		msg := fmt.Sprintf("round%05d", round)
		copy(slot, msg)
		q.Commit()

		payload, ok := q.Peek()
		require.True(t, ok)
		assert.Equal(t, msg, string(payload))
		q.Consume()
	}
}

func TestQueueDropPolicyCountsDrops(t *testing.T) {
	q := NewQueue(64, Drop)
	for i := 0; i < 100; i++ {
		slot, err := q.Reserve(16)
		if err != nil {
			continue
		}
		copy(slot, []byte("0123456789abcdef"))
		q.Commit()
	}
	assert.Greater(t, q.Dropped(), uint64(0))
}

func TestQueueUnboundedGrows(t *testing.T) {
	q := NewQueue(64, Unbounded)
	const n = 200
	for i := 0; i < n; i++ {
		slot, err := q.Reserve(16)
		require.NoError(t, err)
		copy(slot, fmt.Sprintf("payload-%05d...", i))
		q.Commit()
	}
	for i := 0; i < n; i++ {
		payload, ok := q.Peek()
		require.True(t, ok, "record %d should be available", i)
		assert.Equal(t, fmt.Sprintf("payload-%05d...", i), string(payload))
		q.Consume()
	}
}

// TestSPSCProducerConsumer is a coarse stress test for the single-producer/
// single-consumer contract: every record enqueued by the producer goroutine
// must be observed, in order, by the consumer goroutine.
func TestSPSCProducerConsumer(t *testing.T) {
	q := NewQueue(4096, Block)
	const total = 20000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			msg := fmt.Sprintf("%08d", i)
			slot, err := q.Reserve(len(msg))
			require.NoError(t, err)
			copy(slot, msg)
			q.Commit()
		}
	}()

	for i := 0; i < total; i++ {
		var payload []byte
		var ok bool
		for {
			payload, ok = q.Peek()
			if ok {
				break
			}
		}
		assert.Equal(t, fmt.Sprintf("%08d", i), string(payload))
		q.Consume()
	}
	wg.Wait()
}
