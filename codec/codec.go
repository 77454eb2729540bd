// Package codec implements the binary argument codec described in §4.2: a
// tag-prefixed, length-aware encoding for the fixed set of built-in
// argument types plus user-defined types that implement the Value or
// TypedValue capability sets (decoded through a DecodeFunc registered with
// RegisterType). Encoding writes into a caller-provided buffer sized by a
// prior EncodedSize call; arguments rendered through fmt.Stringer or the
// structural-dump fallback allocate their string form. A Scratch keeps its
// per-argument size slice across records for the lifetime of a producer
// thread.
package codec

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/quillgo/quillgo/internal/spew"
)

// Tag identifies the wire representation of a single encoded argument.
type Tag byte

const (
	TagNil Tag = iota
	TagInt64
	TagUint64
	TagFloat64
	TagBool
	TagString
	TagBytes
	TagTime
	TagSlice
	TagMap
	TagCustom
)

// Value is implemented by a user-defined type that knows its own encoded
// size and how to serialize itself. Built-in scalar, string, sequence and
// mapping types never need this; it exists for "complex" user types per
// §4.2.
type Value interface {
	// EncodedSize returns the number of bytes Encode will write.
	EncodedSize() int
	// Encode writes the value into buf, which is exactly EncodedSize()
	// bytes long, and returns the number of bytes written.
	Encode(buf []byte) int
}

// TypedValue additionally names the decoder that reconstructs it, so the
// consumer can dispatch to the right Decode function without reflection.
type TypedValue interface {
	Value
	// TypeID is a stable name registered with RegisterType.
	TypeID() string
}

// DecodeFunc reconstructs a value of a registered type from its encoded
// bytes, returning the value and the number of bytes consumed.
type DecodeFunc func(buf []byte) (any, int)

var registry = map[string]DecodeFunc{}

// RegisterType associates a TypeID with the function that decodes it. Call
// once at program startup (init) for every TypedValue the program logs;
// this is the capability-set analogue of a per-call-site decoder pointer,
// since the macro/call-site frontend that would otherwise bind a decoder
// statically per source location is out of scope (§1).
func RegisterType(id string, decode DecodeFunc) {
	registry[id] = decode
}

// Scratch records per-argument encoded sizes for the two-pass sizing
// scheme: EncodedSize walks the argument list once to fill Sizes. Encode
// does not read Sizes; it writes each argument afresh, evaluating an
// argument's String or EncodedSize method again where its encoding needs
// it. Scratch is owned by a single producer thread and reused across
// records so the Sizes slice is not reallocated per record.
type Scratch struct {
	Sizes []int
}

// EncodedSize computes the total wire size of args, populating s.Sizes
// with each argument's individual size so Encode does not recompute it.
func (s *Scratch) EncodedSize(args []any) int {
	if cap(s.Sizes) < len(args) {
		s.Sizes = make([]int, len(args))
	} else {
		s.Sizes = s.Sizes[:len(args)]
	}
	total := 4 // argument count prefix
	for i, a := range args {
		sz := 1 + argSize(a) // 1 tag byte + value bytes
		s.Sizes[i] = sz
		total += sz
	}
	return total
}

// Encode writes args into buf. buf must be at least as long as the value
// the most recent EncodedSize call returned for the same args; the sizes
// that call cached are not consulted. Returns the number of bytes written.
func (s *Scratch) Encode(buf []byte, args []any) int {
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(args)))
	off += 4
	for _, a := range args {
		off += encodeArg(buf[off:], a)
	}
	return off
}

// argSize returns the wire size of a single argument's value bytes,
// excluding its tag byte.
func argSize(a any) int {
	switch v := a.(type) {
	case nil:
		return 0
	case int:
		return 8
	case int64:
		return 8
	case int32:
		return 8
	case uint:
		return 8
	case uint64:
		return 8
	case uint32:
		return 8
	case float32:
		return 8
	case float64:
		return 8
	case bool:
		return 1
	case string:
		return 4 + len(v)
	case []byte:
		return 4 + len(v)
	case time.Time:
		return 8
	case []any:
		n := 4
		for _, e := range v {
			n += 1 + argSize(e)
		}
		return n
	case map[string]any:
		n := 4
		for k, val := range v {
			n += 4 + len(k)
			n += 1 + argSize(val)
		}
		return n
	case TypedValue:
		return 4 + len(v.TypeID()) + 4 + v.EncodedSize()
	case Value:
		// Untyped Value: encoded as an opaque blob the consumer cannot
		// decode back to a concrete type, only to its raw bytes. Used for
		// trivially-copyable user types whose layout the caller already
		// knows on both ends (e.g. round-tripped within the same process).
		// Wire form: empty TypeID length (4) + size prefix (4) + payload.
		return 4 + 4 + v.EncodedSize()
	case fmt.Stringer:
		return 4 + len(v.String())
	default:
		// Unrecognized shape: fall back to a structural dump rather than
		// the bare "%v" verb, which hides unexported fields and prints
		// unhelpful pointer addresses for nested structs.
		return 4 + len(spew.Dump(v))
	}
}

func encodeArg(buf []byte, a any) int {
	switch v := a.(type) {
	case nil:
		buf[0] = byte(TagNil)
		return 1
	case int:
		buf[0] = byte(TagInt64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(int64(v)))
		return 9
	case int64:
		buf[0] = byte(TagInt64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		return 9
	case int32:
		buf[0] = byte(TagInt64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(int64(v)))
		return 9
	case uint:
		buf[0] = byte(TagUint64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		return 9
	case uint64:
		buf[0] = byte(TagUint64)
		binary.LittleEndian.PutUint64(buf[1:], v)
		return 9
	case uint32:
		buf[0] = byte(TagUint64)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v))
		return 9
	case float32:
		buf[0] = byte(TagFloat64)
		binary.LittleEndian.PutUint64(buf[1:], float64bits(float64(v)))
		return 9
	case float64:
		buf[0] = byte(TagFloat64)
		binary.LittleEndian.PutUint64(buf[1:], float64bits(v))
		return 9
	case bool:
		buf[0] = byte(TagBool)
		if v {
			buf[1] = 1
		} else {
			buf[1] = 0
		}
		return 2
	case string:
		buf[0] = byte(TagString)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(v)))
		copy(buf[5:], v)
		return 5 + len(v)
	case []byte:
		buf[0] = byte(TagBytes)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(v)))
		copy(buf[5:], v)
		return 5 + len(v)
	case time.Time:
		buf[0] = byte(TagTime)
		binary.LittleEndian.PutUint64(buf[1:], uint64(v.UnixNano()))
		return 9
	case []any:
		buf[0] = byte(TagSlice)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(v)))
		off := 5
		for _, e := range v {
			off += encodeArg(buf[off:], e)
		}
		return off
	case map[string]any:
		buf[0] = byte(TagMap)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(v)))
		off := 5
		for k, val := range v {
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(k)))
			off += 4
			copy(buf[off:], k)
			off += len(k)
			off += encodeArg(buf[off:], val)
		}
		return off
	case TypedValue:
		buf[0] = byte(TagCustom)
		id := v.TypeID()
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(id)))
		off := 5
		copy(buf[off:], id)
		off += len(id)
		sz := v.EncodedSize()
		binary.LittleEndian.PutUint32(buf[off:], uint32(sz))
		off += 4
		off += v.Encode(buf[off : off+sz])
		return off
	case Value:
		buf[0] = byte(TagCustom)
		off := 1
		binary.LittleEndian.PutUint32(buf[off:], 0) // empty TypeID: opaque blob
		off += 4
		sz := v.EncodedSize()
		binary.LittleEndian.PutUint32(buf[off:], uint32(sz))
		off += 4
		off += v.Encode(buf[off : off+sz])
		return off
	case fmt.Stringer:
		s := v.String()
		buf[0] = byte(TagString)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(s)))
		copy(buf[5:], s)
		return 5 + len(s)
	default:
		s := spew.Dump(v)
		buf[0] = byte(TagString)
		binary.LittleEndian.PutUint32(buf[1:], uint32(len(s)))
		copy(buf[5:], s)
		return 5 + len(s)
	}
}

// DecodeArgs reconstructs the argument list encoded by Scratch.Encode.
func DecodeArgs(buf []byte) []any {
	if len(buf) < 4 {
		return nil
	}
	count := binary.LittleEndian.Uint32(buf)
	off := 4
	args := make([]any, 0, count)
	for i := uint32(0); i < count; i++ {
		v, n := decodeArg(buf[off:])
		off += n
		args = append(args, v)
	}
	return args
}

func decodeArg(buf []byte) (any, int) {
	tag := Tag(buf[0])
	switch tag {
	case TagNil:
		return nil, 1
	case TagInt64:
		return int64(binary.LittleEndian.Uint64(buf[1:])), 9
	case TagUint64:
		return binary.LittleEndian.Uint64(buf[1:]), 9
	case TagFloat64:
		return float64frombits(binary.LittleEndian.Uint64(buf[1:])), 9
	case TagBool:
		return buf[1] != 0, 2
	case TagString:
		n := binary.LittleEndian.Uint32(buf[1:])
		s := string(buf[5 : 5+n])
		return s, int(5 + n)
	case TagBytes:
		n := binary.LittleEndian.Uint32(buf[1:])
		b := make([]byte, n)
		copy(b, buf[5:5+n])
		return b, int(5 + n)
	case TagTime:
		ns := int64(binary.LittleEndian.Uint64(buf[1:]))
		return time.Unix(0, ns).UTC(), 9
	case TagSlice:
		n := binary.LittleEndian.Uint32(buf[1:])
		off := 5
		out := make([]any, 0, n)
		for i := uint32(0); i < n; i++ {
			v, used := decodeArg(buf[off:])
			off += used
			out = append(out, v)
		}
		return out, off
	case TagMap:
		n := binary.LittleEndian.Uint32(buf[1:])
		off := 5
		out := make(map[string]any, n)
		for i := uint32(0); i < n; i++ {
			klen := binary.LittleEndian.Uint32(buf[off:])
			off += 4
			key := string(buf[off : off+int(klen)])
			off += int(klen)
			v, used := decodeArg(buf[off:])
			off += used
			out[key] = v
		}
		return out, off
	case TagCustom:
		idLen := binary.LittleEndian.Uint32(buf[1:])
		off := 5
		id := string(buf[off : off+int(idLen)])
		off += int(idLen)
		sz := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		payload := buf[off : off+int(sz)]
		off += int(sz)
		if id == "" {
			return RawValue(payload), off
		}
		if dec, ok := registry[id]; ok {
			v, _ := dec(payload)
			return v, off
		}
		return RawValue(payload), off
	default:
		return nil, len(buf)
	}
}

// RawValue is returned for a custom-encoded argument whose TypeID is empty
// or unregistered: the raw encoded bytes, for callers that still want to
// format something rather than lose the record entirely.
type RawValue []byte
