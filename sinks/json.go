package sinks

import (
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/quillgo/quillgo/formatter"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sanitizer"
)

// JSONSink ignores the logger's human pattern entirely (§4.5): it emits
// one JSON object per record with a fixed field set, the message field
// holding the call site's raw template with its named placeholders
// preserved verbatim, plus every named argument promoted to a top-level
// key holding its formatted value.
type JSONSink struct {
	w   io.Writer
	ser *sanitizer.Serializer
	mu  sync.Mutex
}

// NewJSONSink wraps an arbitrary writer (a console, a plain file, or a
// rotating file) with JSON-line encoding.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, ser: sanitizer.NewSerializer("json", sanitizer.New())}
}

// NewJSONConsoleSink emits JSON lines to stdout.
func NewJSONConsoleSink() *JSONSink {
	return NewJSONSink(os.Stdout)
}

// NewJSONFileSink emits JSON lines to a lumberjack-managed rotating file.
func NewJSONFileSink(path string, policy RotationPolicy) *JSONSink {
	return NewJSONSink(newLumberjack(path, policy))
}

// WriteRecord implements Sink. The object is built field-by-field with
// sanitizer.Serializer rather than encoding/json + a map, so named
// arguments land as top-level keys in template order instead of the
// alphabetical order json.Marshal would impose on a map, and every string
// value (including the raw template and a named argument's formatted
// value) gets the Serializer's JSON quoting and control-character
// escaping.
func (s *JSONSink) WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error {
	_, named := formatter.RenderMessage(meta.Template, args)

	buf := make([]byte, 0, 128)
	buf = append(buf, '{')

	buf = s.field(buf, "timestamp", true)
	s.ser.WriteNumber(&buf, strconv.FormatInt(hdr.Timestamp, 10))

	buf = s.field(buf, "file_name", false)
	s.ser.WriteString(&buf, baseName(meta.File))

	buf = s.field(buf, "line_number", false)
	s.ser.WriteNumber(&buf, strconv.Itoa(meta.Line))

	buf = s.field(buf, "thread_id", false)
	s.ser.WriteNumber(&buf, strconv.FormatInt(hdr.ThreadID, 10))

	buf = s.field(buf, "logger", false)
	s.ser.WriteString(&buf, meta.LoggerName)

	buf = s.field(buf, "log_level", false)
	s.ser.WriteString(&buf, hdr.Level.String())

	buf = s.field(buf, "message", false)
	s.ser.WriteString(&buf, meta.Template)

	for _, n := range named {
		buf = s.field(buf, n.Name, false)
		s.ser.WriteString(&buf, n.Value)
	}

	buf = append(buf, '}', '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(buf)
	return err
}

// field appends the `"key":` prefix for the next object member, preceding
// it with a comma unless first is true.
func (s *JSONSink) field(buf []byte, key string, first bool) []byte {
	if !first {
		buf = append(buf, ',')
	}
	s.ser.WriteString(&buf, key)
	buf = append(buf, ':')
	return buf
}

// Flush implements Sink.
func (s *JSONSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sy, ok := s.w.(syncer); ok {
		return sy.Sync()
	}
	return nil
}

// RotateIfNeeded implements Sink.
func (s *JSONSink) RotateIfNeeded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.w.(dueRotator); ok {
		return r.RotateIfDue()
	}
	return nil
}
