package sinks

import (
	"io"
	"sync"

	"github.com/quillgo/quillgo/formatter"
	"github.com/quillgo/quillgo/record"
)

// syncer is implemented by destinations that can force buffered bytes to
// stable storage (*os.File and the rotatingFile wrapper both qualify).
type syncer interface {
	Sync() error
}

// TextSink renders records through a compiled pattern Formatter and writes
// the resulting lines to an underlying io.Writer. Console, plain file, and
// rotating file sinks are all a TextSink over a different writer.
type TextSink struct {
	formatter *formatter.Formatter
	w         io.Writer
	mu        sync.Mutex
	colorize  bool
}

// NewTextSink wraps w with the given compiled formatter.
func NewTextSink(w io.Writer, f *formatter.Formatter) *TextSink {
	return &TextSink{formatter: f, w: w}
}

// ansiColor maps a level to the ANSI escape that opens its console color
// (§4.5's "optional ANSI color per level"); ansiReset closes it.
var ansiColor = map[record.Level]string{
	record.LevelTraceL3:   "\x1b[90m",
	record.LevelTraceL2:   "\x1b[90m",
	record.LevelTraceL1:   "\x1b[90m",
	record.LevelDebug:     "\x1b[36m",
	record.LevelInfo:      "\x1b[32m",
	record.LevelWarning:   "\x1b[33m",
	record.LevelError:     "\x1b[31m",
	record.LevelCritical:  "\x1b[1;31m",
	record.LevelBacktrace: "\x1b[35m",
}

const ansiReset = "\x1b[0m"

func colorizeLine(level record.Level, line []byte) []byte {
	code, ok := ansiColor[level]
	if !ok {
		return line
	}
	out := make([]byte, 0, len(code)+len(line)+len(ansiReset))
	out = append(out, code...)
	out = append(out, line...)
	out = append(out, ansiReset...)
	return out
}

// WriteRecord implements Sink.
func (s *TextSink) WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error {
	line := s.formatter.Format(hdr, meta, args)
	if s.colorize {
		line = colorizeLine(hdr.Level, line)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(line)
	return err
}

// Flush implements Sink, delegating to the writer's Sync if it has one.
func (s *TextSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sy, ok := s.w.(syncer); ok {
		return sy.Sync()
	}
	return nil
}

// RotateIfNeeded implements Sink, delegating to the writer's RotateIfDue if
// it has one (a no-op for console sinks, plain files, and rotating files
// whose policy has no configured time interval).
func (s *TextSink) RotateIfNeeded() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.w.(dueRotator); ok {
		return r.RotateIfDue()
	}
	return nil
}
