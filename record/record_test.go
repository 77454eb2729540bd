package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillgo/quillgo/codec"
	"github.com/quillgo/quillgo/queue"
)

func TestLevelStringAndShortCode(t *testing.T) {
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "I", LevelInfo.ShortCode())
	assert.Equal(t, "WARNING", LevelWarning.String())
	assert.Equal(t, "W", LevelWarning.ShortCode())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	require.True(t, ok)
	assert.Equal(t, LevelWarning, l)

	l, ok = ParseLevel("e")
	require.True(t, ok)
	assert.Equal(t, LevelError, l)

	_, ok = ParseLevel("nope")
	assert.False(t, ok)
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	n := EncodeHeader(buf, 123456789, LevelCritical, Handle(7), 99, 42)
	require.Equal(t, HeaderSize, n)

	hdr := DecodeHeader(buf)
	assert.Equal(t, int64(123456789), hdr.Timestamp)
	assert.Equal(t, LevelCritical, hdr.Level)
	assert.Equal(t, Handle(7), hdr.Meta)
	assert.Equal(t, int64(99), hdr.ThreadID)
	assert.Equal(t, 42, hdr.PayloadSize)
}

func TestEnqueueAndDecodeNext(t *testing.T) {
	h := Register(&Metadata{
		Template:   "{method} to {endpoint} took {elapsed} ms",
		File:       "main.go",
		Line:       42,
		Function:   "main.main",
		LoggerName: "root",
	})

	q := queue.NewQueue(4096, queue.Block)
	var scratch codec.Scratch

	err := Enqueue(q, &scratch, 1000, LevelInfo, h, 1, []any{"POST", "http://example", int64(10)})
	require.NoError(t, err)

	peeked, ok := PeekHeader(q)
	require.True(t, ok)
	assert.Equal(t, int64(1000), peeked.Timestamp)
	assert.Equal(t, LevelInfo, peeked.Level)
	assert.Equal(t, h, peeked.Meta)

	hdr, meta, args, ok := DecodeNext(q)
	require.True(t, ok)
	assert.Equal(t, int64(1000), hdr.Timestamp)
	require.NotNil(t, meta)
	assert.Equal(t, "main.go", meta.File)
	assert.Equal(t, []any{"POST", "http://example", int64(10)}, args)

	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestDecodeNextUsesCustomDecoder(t *testing.T) {
	called := false
	h := Register(&Metadata{
		Template: "custom",
		Decode: func(payload []byte) []any {
			called = true
			return codec.DecodeArgs(payload)
		},
	})

	q := queue.NewQueue(4096, queue.Block)
	var scratch codec.Scratch
	require.NoError(t, Enqueue(q, &scratch, 1, LevelDebug, h, 1, []any{int64(5)}))

	_, _, args, ok := DecodeNext(q)
	require.True(t, ok)
	assert.True(t, called)
	assert.Equal(t, []any{int64(5)}, args)
}

func TestEnqueueManyRecordsPreservesOrder(t *testing.T) {
	h := Register(&Metadata{Template: "seq"})
	q := queue.NewQueue(256, queue.Block)
	var scratch codec.Scratch

	const n = 200
	errCh := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if err := Enqueue(q, &scratch, int64(i), LevelInfo, h, 1, []any{int64(i)}); err != nil {
				errCh <- err
				return
			}
		}
		errCh <- nil
	}()

	for i := 0; i < n; i++ {
		var hdr Header
		var args []any
		var ok bool
		for {
			hdr, _, args, ok = DecodeNext(q)
			if ok {
				break
			}
		}
		require.Equal(t, int64(i), hdr.Timestamp)
		require.Equal(t, []any{int64(i)}, args)
	}
	require.NoError(t, <-errCh)
}
