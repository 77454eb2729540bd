// Package quillgo is the package-level facade over the registry, backend,
// and sink packages: a minimal stand-in for the macro/call-site frontend
// that §1 explicitly places out of scope. A real frontend would bind one
// static Metadata block per call site at compile time; this facade
// approximates that by caching one Metadata per distinct (logger name,
// message template) pair the first time it is seen, which is enough to
// keep the per-record path allocation-free after warmup without requiring
// code generation.
package quillgo

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/registry"
)

var (
	mu  sync.RWMutex
	reg *registry.Registry
)

// Init starts the process-wide backend and registry. It is an error to
// call Init twice without an intervening Shutdown, mirroring the registry's
// uninitialized -> running lifecycle (§4.7); logging before Init or after
// Shutdown is a documented no-op rather than a panic (§9).
func Init(cfg *registry.Config) error {
	mu.Lock()
	defer mu.Unlock()
	if reg != nil {
		return fmt.Errorf("quillgo: already initialized")
	}
	r := registry.New(cfg)
	if err := r.Start(); err != nil {
		return err
	}
	reg = r
	return nil
}

// Shutdown drains every producer queue, flushes every sink, and stops the
// backend thread (§4.6 shutdown phase), bounded by cfg.ShutdownTimeoutMs.
func Shutdown() error {
	mu.Lock()
	r := reg
	reg = nil
	mu.Unlock()
	if r == nil {
		return fmt.Errorf("quillgo: not initialized")
	}
	metaCacheMu.Lock()
	metaCache = make(map[metaKey]record.Handle)
	metaCacheMu.Unlock()
	// Drop pooled producers along with the registry they were bound to;
	// a producer from a stopped registry's backend would silently lose
	// every record logged through it if reused after a later Init.
	producerPool = sync.Pool{}
	return r.Stop()
}

// Current returns the active Registry for callers that need the lower-level
// CreateOrGetSink/RegisterTransportStopper/Stats surface directly, or false
// if the package has not been initialized.
func Current() (*registry.Registry, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return reg, reg != nil
}

// Logger is the facade's call-site-facing handle: a thin wrapper over
// registry.Logger that adds the level-named convenience methods a LOG_*
// macro would otherwise expand to.
type Logger struct {
	lg *registry.Logger
}

// CreateOrGetLogger creates or retrieves a named logger routed to the given
// already-created sink names, per the idempotent create-or-get contract of
// §4.7: a second call with the same name returns the existing logger and
// ignores sinkNames/level.
func CreateOrGetLogger(name string, sinkNames []string, level record.Level) (*Logger, error) {
	mu.RLock()
	r := reg
	mu.RUnlock()
	if r == nil {
		return nil, fmt.Errorf("quillgo: not initialized")
	}
	return &Logger{lg: r.CreateOrGetLogger(name, sinkNames, level)}, nil
}

// Name returns the logger's registered name.
func (l *Logger) Name() string { return l.lg.Name() }

// SetLevel changes the logger's threshold.
func (l *Logger) SetLevel(level record.Level) { l.lg.SetLevel(level) }

var producerPool sync.Pool

// acquireProducer borrows a Producer from the pool or creates one against
// the active registry, returning nil if the package is not initialized.
// Pool exclusivity (a Producer is never held by two goroutines at once)
// preserves the single-producer invariant the underlying queue requires,
// even though a given Producer's physical goroutine can change between
// borrows.
func acquireProducer() *registry.Producer {
	if v := producerPool.Get(); v != nil {
		return v.(*registry.Producer)
	}
	mu.RLock()
	r := reg
	mu.RUnlock()
	if r == nil {
		return nil
	}
	p, err := r.NewProducer()
	if err != nil {
		return nil
	}
	return p
}

func releaseProducer(p *registry.Producer) {
	if p != nil {
		producerPool.Put(p)
	}
}

type metaKey struct {
	logger   string
	template string
}

var (
	metaCacheMu sync.Mutex
	metaCache   = map[metaKey]record.Handle{}
)

// handleFor returns the cached Handle for (loggerName, template),
// registering a new Metadata the first time this pair is seen. skip is the
// runtime.Caller depth (relative to handleFor's own frame) that reaches the
// user's true call site, used only to label the first occurrence's
// file/line/function; later calls from a different call site sharing the
// same template reuse that first location, the approximation this facade
// accepts in place of per-call-site binding (§1, §9).
func handleFor(loggerName, template string, skip int) record.Handle {
	key := metaKey{loggerName, template}

	metaCacheMu.Lock()
	defer metaCacheMu.Unlock()
	if h, ok := metaCache[key]; ok {
		return h
	}

	file, line, fn := callSite(skip + 1)
	m := &record.Metadata{
		Template:   template,
		File:       file,
		Line:       line,
		Function:   fn,
		LoggerName: loggerName,
	}
	h := record.Register(m)
	metaCache[key] = h
	return h
}

func callSite(skip int) (file string, line int, function string) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", 0, ""
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
	}
	return file, line, function
}

// log is the common path every level-named method funnels through: a
// constant-time level gate (no bytes enqueued below threshold, invariant 5)
// followed by encode-and-publish on a pooled Producer.
func (l *Logger) log(level record.Level, template string, args ...any) {
	if !l.lg.ShouldLog(level) {
		return
	}
	h := handleFor(l.lg.Name(), template, 3)
	p := acquireProducer()
	if p == nil {
		return
	}
	defer releaseProducer(p)
	_ = p.Log(level, h, args...)
}

func (l *Logger) TraceL3(template string, args ...any) { l.log(record.LevelTraceL3, template, args...) }
func (l *Logger) TraceL2(template string, args ...any) { l.log(record.LevelTraceL2, template, args...) }
func (l *Logger) TraceL1(template string, args ...any) { l.log(record.LevelTraceL1, template, args...) }
func (l *Logger) Debug(template string, args ...any)   { l.log(record.LevelDebug, template, args...) }
func (l *Logger) Info(template string, args ...any)    { l.log(record.LevelInfo, template, args...) }
func (l *Logger) Warning(template string, args ...any) { l.log(record.LevelWarning, template, args...) }
func (l *Logger) Error(template string, args ...any)   { l.log(record.LevelError, template, args...) }
func (l *Logger) Critical(template string, args ...any) {
	l.log(record.LevelCritical, template, args...)
}
func (l *Logger) Backtrace(template string, args ...any) {
	l.log(record.LevelBacktrace, template, args...)
}

// FlushSync forces every tracked sink to flush and gives the backend a
// brief grace period to catch up, returning once timeout elapses. It is a
// process-wide flush rather than a precise per-producer sentinel wait,
// since producers are pooled across goroutines in this facade rather than
// owned one-per-thread as §6's flush_sync assumes.
func FlushSync(timeout time.Duration) bool {
	mu.RLock()
	r := reg
	mu.RUnlock()
	if r == nil {
		return false
	}
	r.FlushAll()
	time.Sleep(timeout)
	return true
}
