// Package record implements the on-queue record representation described
// in §3: a self-describing header (timestamp, level, a handle to an
// immutable static metadata block, thread id, and payload size) followed
// by the codec's
// encoded argument payload.
//
// The static metadata block is owned by the call site and lives for the
// program's lifetime; only a small integer handle to it travels through
// the queue, keeping the header fixed-size and allocation-free to write.
package record

import (
	"encoding/binary"
	"sync"

	"github.com/quillgo/quillgo/codec"
	"github.com/quillgo/quillgo/queue"
)

// Level is the log level enumeration from §6, ordered from most to least
// verbose trace level, then the conventional severities, then BACKTRACE.
type Level int8

const (
	LevelTraceL3 Level = iota
	LevelTraceL2
	LevelTraceL1
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
	LevelBacktrace
)

var levelNames = [...]string{
	"TRACE_L3", "TRACE_L2", "TRACE_L1", "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL", "BACKTRACE",
}

var levelShortCodes = [...]string{
	"T3", "T2", "T1", "D", "I", "W", "E", "C", "BT",
}

// String returns the user-visible label, e.g. "WARNING".
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ShortCode returns the abbreviated label, e.g. "W".
func (l Level) ShortCode() string {
	if l < 0 || int(l) >= len(levelShortCodes) {
		return "?"
	}
	return levelShortCodes[l]
}

// ParseLevel converts a label (either form, case-insensitive) to a Level.
func ParseLevel(s string) (Level, bool) {
	for i, name := range levelNames {
		if equalFold(name, s) {
			return Level(i), true
		}
	}
	for i, code := range levelShortCodes {
		if equalFold(code, s) {
			return Level(i), true
		}
	}
	return 0, false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// DecodeFunc reconstructs the formattable argument list from an encoded
// payload. The default, codec.DecodeArgs, covers every built-in and
// registered TypedValue; a call site may supply its own to bypass the
// generic tag dispatch for a known-fixed argument shape.
type DecodeFunc func(payload []byte) []any

// Metadata is the static, immutable, program-lifetime block a call site
// owns: its format template, source location, and decoder. In the real
// macro frontend (out of scope per §1) one Metadata is emitted per call
// site at compile time; here a caller creates one per distinct call site
// and registers it once (typically guarded by sync.Once at the call site).
type Metadata struct {
	Template   string
	File       string
	Line       int
	Function   string
	LoggerName string
	Decode     DecodeFunc
}

var (
	metaMu    sync.Mutex
	metaTable []*Metadata
)

// Handle is the small integer the on-queue header carries in place of an
// actual pointer to a Metadata block, keeping the header's wire layout
// independent of pointer width and safe to decode regardless of which
// goroutine reads it.
type Handle uint32

// Register records m in the process-wide metadata table and returns a
// Handle for use in EncodeHeader. Safe to call concurrently from multiple
// producer threads, but intended to run once per call site (e.g. behind a
// package-level var initialized at first use).
func Register(m *Metadata) Handle {
	metaMu.Lock()
	defer metaMu.Unlock()
	metaTable = append(metaTable, m)
	return Handle(len(metaTable) - 1)
}

// Lookup resolves a Handle back to its Metadata block.
func Lookup(h Handle) *Metadata {
	metaMu.Lock()
	defer metaMu.Unlock()
	return metaTable[h]
}

// HeaderSize is the fixed on-wire size of a record header, in bytes:
// 8 (timestamp) + 1 (level) + 4 (metadata handle) + 8 (thread id) +
// 4 (payload size).
const HeaderSize = 8 + 1 + 4 + 8 + 4

// EncodeHeader writes a record header into buf (which must be at least
// HeaderSize bytes) and returns HeaderSize.
func EncodeHeader(buf []byte, timestamp int64, level Level, h Handle, threadID int64, payloadSize int) int {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(timestamp))
	buf[8] = byte(level)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(h))
	binary.LittleEndian.PutUint64(buf[13:21], uint64(threadID))
	binary.LittleEndian.PutUint32(buf[21:25], uint32(payloadSize))
	return HeaderSize
}

// Header is the decoded form of a record's fixed-size prefix.
type Header struct {
	Timestamp   int64
	Level       Level
	Meta        Handle
	ThreadID    int64
	PayloadSize int
}

// DecodeHeader reads a record header from buf, which must be at least
// HeaderSize bytes.
func DecodeHeader(buf []byte) Header {
	return Header{
		Timestamp:   int64(binary.LittleEndian.Uint64(buf[0:8])),
		Level:       Level(buf[8]),
		Meta:        Handle(binary.LittleEndian.Uint32(buf[9:13])),
		ThreadID:    int64(binary.LittleEndian.Uint64(buf[13:21])),
		PayloadSize: int(binary.LittleEndian.Uint32(buf[21:25])),
	}
}

// Enqueue encodes a full record (header + argument payload) and publishes
// it on q, applying q's configured overflow policy. scratch is reused
// across calls from the same producer thread to avoid allocating a new
// size-cache slice per record. threadID is the producer's cached goroutine
// id (see Producer in the registry package), computed once per producer
// rather than per record.
func Enqueue(q *queue.Queue, scratch *codec.Scratch, timestamp int64, level Level, h Handle, threadID int64, args []any) error {
	payloadSize := scratch.EncodedSize(args)
	total := HeaderSize + payloadSize
	slot, err := q.Reserve(total)
	if err != nil {
		return err
	}
	EncodeHeader(slot, timestamp, level, h, threadID, payloadSize)
	scratch.Encode(slot[HeaderSize:], args)
	q.Commit()
	return nil
}

// PeekHeader decodes the header of the next available record on q without
// consuming it, for the backend's snapshot phase (§4.6 step 1), which only
// needs the timestamp to pick the next record across queues.
func PeekHeader(q *queue.Queue) (Header, bool) {
	b, ok := q.Peek()
	if !ok || len(b) < HeaderSize {
		return Header{}, false
	}
	return DecodeHeader(b), true
}

// DecodeNext decodes the full next record (header, resolved metadata, and
// formattable arguments) and consumes it from q. Use after PeekHeader has
// selected this queue as the one to drain this iteration.
func DecodeNext(q *queue.Queue) (Header, *Metadata, []any, bool) {
	b, ok := q.Peek()
	if !ok || len(b) < HeaderSize {
		return Header{}, nil, nil, false
	}
	hdr := DecodeHeader(b)
	meta := Lookup(hdr.Meta)
	payload := b[HeaderSize : HeaderSize+hdr.PayloadSize]

	decode := meta.Decode
	if decode == nil {
		decode = codec.DecodeArgs
	}
	args := decode(payload)
	q.Consume()
	return hdr, meta, args, true
}
