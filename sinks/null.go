package sinks

import "github.com/quillgo/quillgo/record"

// NullSink discards every record; used in tests and for loggers whose
// sinks were all removed at runtime without tearing down the logger itself.
type NullSink struct{}

// NewNullSink returns a NullSink.
func NewNullSink() *NullSink { return &NullSink{} }

func (NullSink) WriteRecord(record.Header, *record.Metadata, []any) error { return nil }
func (NullSink) Flush() error                                            { return nil }
func (NullSink) RotateIfNeeded() error                                   { return nil }
