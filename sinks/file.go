package sinks

import (
	"os"
	"time"

	"github.com/quillgo/quillgo/formatter"
)

// OpenMode selects whether NewFileSink appends to an existing file or
// truncates it on open.
type OpenMode int

const (
	OpenAppend OpenMode = iota
	OpenTruncate
)

// NewFileSink creates a TextSink over a plain, non-rotating file at path,
// creating it (and any parent permissions bits) if it doesn't exist. mode
// selects append-to-existing versus truncate-on-open.
func NewFileSink(path, pattern, tsLayout string, loc *time.Location, mode OpenMode, opts ...formatter.Option) (*TextSink, error) {
	f, err := formatter.New(pattern, tsLayout, loc, opts...)
	if err != nil {
		return nil, err
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if mode == OpenTruncate {
		flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return NewTextSink(file, f), nil
}
