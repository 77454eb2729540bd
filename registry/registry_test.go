package registry

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillgo/quillgo/formatter"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/sinks"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.ShutdownTimeoutMs = 2000
	cfg.SleepDurationMinUs = 50
	cfg.SleepDurationMaxMs = 2
	return cfg
}

func TestRegistryEndToEndDispatchesToSink(t *testing.T) {
	r := New(testConfig())
	require.NoError(t, r.Start())
	defer r.Stop()

	var buf bytes.Buffer
	f, err := formatter.New("%(log_level) %(message)", "%Y", time.UTC)
	require.NoError(t, err)
	sink, err := r.CreateOrGetSink("console", "text", func() (sinks.Sink, error) {
		return sinks.NewTextSink(&buf, f), nil
	})
	require.NoError(t, err)
	require.NotNil(t, sink)

	logger := r.CreateOrGetLogger("root", []string{"console"}, record.LevelInfo)

	h := record.Register(&record.Metadata{Template: "hello {name}", LoggerName: "root"})
	producer, err := r.NewProducer()
	require.NoError(t, err)

	require.True(t, logger.ShouldLog(record.LevelInfo))
	require.NoError(t, producer.Log(record.LevelInfo, h, "world"))

	require.Eventually(t, func() bool {
		return buf.Len() > 0
	}, time.Second, time.Millisecond)

	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "hello world")
}

func TestRegistryLoggerLevelGateSuppressesBelowThreshold(t *testing.T) {
	r := New(testConfig())
	require.NoError(t, r.Start())
	defer r.Stop()

	logger := r.CreateOrGetLogger("quiet", nil, record.LevelWarning)
	assert.False(t, logger.ShouldLog(record.LevelInfo))
	assert.True(t, logger.ShouldLog(record.LevelError))
}

func TestCreateOrGetLoggerIsIdempotent(t *testing.T) {
	r := New(testConfig())
	l1 := r.CreateOrGetLogger("root", []string{"a"}, record.LevelInfo)
	l2 := r.CreateOrGetLogger("root", []string{"b", "c"}, record.LevelError)
	assert.Same(t, l1, l2)
	assert.True(t, l1.ShouldLog(record.LevelInfo))
}

func TestCreateOrGetSinkRejectsKindMismatch(t *testing.T) {
	r := New(testConfig())
	_, err := r.CreateOrGetSink("s", "text", func() (sinks.Sink, error) {
		return sinks.NewNullSink(), nil
	})
	require.NoError(t, err)

	_, err = r.CreateOrGetSink("s", "json", func() (sinks.Sink, error) {
		return sinks.NewNullSink(), nil
	})
	assert.Error(t, err)
}

func TestGetSinkAndGetLogger(t *testing.T) {
	r := New(testConfig())
	_, ok := r.GetSink("missing")
	assert.False(t, ok)

	_, err := r.CreateOrGetSink("present", "null", func() (sinks.Sink, error) {
		return sinks.NewNullSink(), nil
	})
	require.NoError(t, err)
	_, ok = r.GetSink("present")
	assert.True(t, ok)

	_, ok = r.GetLogger("nope")
	assert.False(t, ok)
	r.CreateOrGetLogger("here", nil, record.LevelInfo)
	_, ok = r.GetLogger("here")
	assert.True(t, ok)
}

func TestStopIsIdempotentAfterShutdown(t *testing.T) {
	r := New(testConfig())
	require.NoError(t, r.Start())
	require.NoError(t, r.Stop())
	assert.Error(t, r.Stop())
}

func TestProducerFlushSyncWaitsForDrain(t *testing.T) {
	r := New(testConfig())
	require.NoError(t, r.Start())
	defer r.Stop()

	_, err := r.CreateOrGetSink("null", "null", func() (sinks.Sink, error) {
		return sinks.NewNullSink(), nil
	})
	require.NoError(t, err)
	r.CreateOrGetLogger("root", []string{"null"}, record.LevelInfo)

	h := record.Register(&record.Metadata{Template: "x", LoggerName: "root"})
	producer, err := r.NewProducer()
	require.NoError(t, err)

	require.NoError(t, producer.Log(record.LevelInfo, h))
	assert.True(t, producer.FlushSync(time.Second))
}
