// Package sinks implements the sink capability set from §4.5: write,
// flush, and rotate-if-needed, for the console, plain/rotating file, JSON,
// null, and zap-backed sink kinds.
package sinks

import (
	"strings"

	"github.com/quillgo/quillgo/record"
)

// Sink is the capability set the backend dispatches a formatted record to.
// Every sink kind in this package implements it.
type Sink interface {
	// WriteRecord formats and emits one record.
	WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error
	// Flush forces any buffered bytes out to their destination.
	Flush() error
	// RotateIfNeeded asks the sink to roll its destination if its own
	// policy calls for it (size/time thresholds); a no-op for sinks with
	// no rotation concept.
	RotateIfNeeded() error
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
