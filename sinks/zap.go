package sinks

import (
	"go.uber.org/zap"

	"github.com/quillgo/quillgo/formatter"
	"github.com/quillgo/quillgo/record"
)

// ZapSink forwards formatted records into a zap.Logger, for programs that
// already aggregate their structured logs through zap and want this
// library's records to land in the same pipeline instead of a separate
// file or console stream.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink wraps an existing *zap.Logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

// WriteRecord implements Sink, mapping the record level to the nearest
// zap level and every named template argument to a zap.String field.
func (s *ZapSink) WriteRecord(hdr record.Header, meta *record.Metadata, args []any) error {
	message, named := formatter.RenderMessage(meta.Template, args)

	fields := make([]zap.Field, 0, len(named)+2)
	fields = append(fields,
		zap.String("logger", meta.LoggerName),
		zap.Int64("thread_id", hdr.ThreadID),
	)
	for _, n := range named {
		fields = append(fields, zap.String(n.Name, n.Value))
	}

	switch hdr.Level {
	case record.LevelTraceL3, record.LevelTraceL2, record.LevelTraceL1, record.LevelDebug:
		s.logger.Debug(message, fields...)
	case record.LevelInfo:
		s.logger.Info(message, fields...)
	case record.LevelWarning:
		s.logger.Warn(message, fields...)
	case record.LevelError, record.LevelCritical, record.LevelBacktrace:
		s.logger.Error(message, fields...)
	default:
		s.logger.Info(message, fields...)
	}
	return nil
}

// Flush implements Sink.
func (s *ZapSink) Flush() error {
	return s.logger.Sync()
}

// RotateIfNeeded implements Sink; zap owns its own output rotation, if any.
func (s *ZapSink) RotateIfNeeded() error { return nil }
