package sinks

import (
	"io"
	"os"
	"time"

	"github.com/quillgo/quillgo/formatter"
)

// Stream selects which standard stream a console sink writes to.
type Stream int

const (
	StreamStdout Stream = iota
	StreamStderr
)

// NewConsoleSink creates a TextSink writing to standard output or standard
// error (§4.5), with the given compiled line pattern and timestamp layout.
// color enables ANSI coloring per level, matching the optional coloring
// §4.5 names for the console sink.
func NewConsoleSink(stream Stream, color bool, pattern, tsLayout string, loc *time.Location, opts ...formatter.Option) (*TextSink, error) {
	f, err := formatter.New(pattern, tsLayout, loc, opts...)
	if err != nil {
		return nil, err
	}
	var w io.Writer = os.Stdout
	if stream == StreamStderr {
		w = os.Stderr
	}
	sink := NewTextSink(w, f)
	sink.colorize = color
	return sink, nil
}
