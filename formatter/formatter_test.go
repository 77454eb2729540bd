package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillgo/quillgo/record"
)

// S1 — basic info: console pattern "%(log_level) %(message)".
func TestFormatBasicInfo(t *testing.T) {
	f, err := New("%(log_level) %(message)", "%Y-%m-%d %H:%M:%S", time.UTC)
	require.NoError(t, err)

	meta := &record.Metadata{Template: "x={}", File: "main.go", Line: 1, LoggerName: "root"}
	hdr := record.Header{Timestamp: time.Now().UnixNano(), Level: record.LevelInfo}

	line := f.Format(hdr, meta, []any{int64(42)})
	assert.Equal(t, "INFO x=42\n", string(line))
}

// S2 — named args: console pattern "%(message) [%(named_args)]".
func TestFormatNamedArgs(t *testing.T) {
	f, err := New("%(message) [%(named_args)]", "%Y-%m-%d", time.UTC)
	require.NoError(t, err)

	meta := &record.Metadata{
		Template: "{method} to {endpoint} took {elapsed} ms",
		File:     "main.go", Line: 10, LoggerName: "root",
	}
	hdr := record.Header{Timestamp: time.Now().UnixNano(), Level: record.LevelInfo}

	line := f.Format(hdr, meta, []any{"POST", "http://", int64(20)})
	assert.Equal(t,
		"POST to http:// took 20 ms [method: POST, endpoint: http://, elapsed: 20]\n",
		string(line))
}

func TestFormatPositionalOnlyHasEmptyNamedArgs(t *testing.T) {
	f, err := New("%(message)|%(named_args)|", "%Y", time.UTC)
	require.NoError(t, err)

	meta := &record.Metadata{Template: "hello {}", File: "a.go", Line: 1}
	hdr := record.Header{Level: record.LevelDebug}

	line := f.Format(hdr, meta, []any{"world"})
	assert.Equal(t, "hello world||\n", string(line))
}

func TestFormatAlignmentAndWidth(t *testing.T) {
	f, err := New("%(log_level:<10)|%(message)", "%Y", time.UTC)
	require.NoError(t, err)

	meta := &record.Metadata{Template: "ok"}
	hdr := record.Header{Level: record.LevelWarning}

	line := f.Format(hdr, meta, nil)
	assert.Equal(t, "WARNING   |ok\n", string(line))
}

func TestFormatSourceLocationPlaceholders(t *testing.T) {
	f, err := New("%(short_source_location) %(log_level_short_code)", "%Y", time.UTC)
	require.NoError(t, err)

	meta := &record.Metadata{Template: "m", File: "/srv/app/main.go", Line: 99}
	hdr := record.Header{Level: record.LevelError}

	line := f.Format(hdr, meta, nil)
	assert.Equal(t, "main.go:99 E\n", string(line))
}

func TestFormatPathDepthOption(t *testing.T) {
	meta := &record.Metadata{Template: "m", File: "/srv/app/internal/worker/main.go", Line: 7}
	hdr := record.Header{Level: record.LevelInfo}

	f, err := New("%(file_name)", "%Y", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "main.go\n", string(f.Format(hdr, meta, nil)))

	f, err = New("%(file_name)", "%Y", time.UTC, WithPathDepth(2))
	require.NoError(t, err)
	assert.Equal(t, "worker/main.go\n", string(f.Format(hdr, meta, nil)))

	f, err = New("%(file_name)", "%Y", time.UTC, WithPathDepth(-1))
	require.NoError(t, err)
	assert.Equal(t, meta.File+"\n", string(f.Format(hdr, meta, nil)))
}

func TestCompilePatternRejectsUnknownPlaceholder(t *testing.T) {
	_, err := New("%(nonsense)", "%Y", time.UTC)
	assert.Error(t, err)
}

func TestCompilePatternRejectsMalformedAlignment(t *testing.T) {
	_, err := New("%(log_level:Q5)", "%Y", time.UTC)
	assert.Error(t, err)
}

func TestFormatTimestampStrftimeAndSubSecondExtensions(t *testing.T) {
	ts := time.Date(2024, 3, 7, 13, 5, 9, 123456789, time.UTC)

	assert.Equal(t, "2024-03-07 13:05:09", FormatTimestamp(ts, "%Y-%m-%d %H:%M:%S"))
	assert.Equal(t, "123", FormatTimestamp(ts, "%Qms"))
	assert.Equal(t, "123456", FormatTimestamp(ts, "%Qus"))
	assert.Equal(t, "123456789", FormatTimestamp(ts, "%Qns"))
}

func TestRenderMessageNamedAndPositional(t *testing.T) {
	msg, named := RenderMessage("{a} to {b}", []any{"A", "B"})
	assert.Equal(t, "A to B", msg)
	require.Len(t, named, 2)
	assert.Equal(t, NamedArg{Name: "a", Value: "A"}, named[0])
	assert.Equal(t, NamedArg{Name: "b", Value: "B"}, named[1])

	msg, named = RenderMessage("value={}", []any{int64(7)})
	assert.Equal(t, "value=7", msg)
	assert.Empty(t, named)
}

func TestRenderMessagePrecisionSpec(t *testing.T) {
	msg, _ := RenderMessage("pi={:.2f}", []any{3.14159})
	assert.Equal(t, "pi=3.14", msg)
}
