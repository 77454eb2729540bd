package registry

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/quillgo/quillgo/record"
)

// StartHeartbeat begins periodically emitting a backend-health summary
// record to loggerName (adapted from the teacher's handleHeartbeat/
// logProcHeartbeat): queue throughput and drop counters, reused through
// the ordinary log-record pipeline rather than a separate metrics
// subsystem, per §9's note that observability proper is out of scope.
// loggerName must already exist (via CreateOrGetLogger), or every tick's
// record is silently dropped by the backend's resolver, the same way a
// stale metadata handle would be.
func (r *Registry) StartHeartbeat(interval time.Duration, loggerName string) error {
	p, err := r.NewProducer()
	if err != nil {
		return err
	}

	meta := &record.Metadata{
		Template:   "backend heartbeat: sequence={sequence} drained={drained} dropped={dropped} goroutines={goroutines}",
		File:       "registry/heartbeat.go",
		Function:   "heartbeatLoop",
		LoggerName: loggerName,
	}
	handle := record.Register(meta)

	stop := make(chan struct{})
	r.mu.Lock()
	r.heartbeatStops = append(r.heartbeatStops, stop)
	r.mu.Unlock()

	var sequence atomic.Uint64
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				stats := r.Stats()
				seq := sequence.Add(1)
				_ = p.Log(record.LevelWarning, handle,
					seq, stats.Drained, stats.Dropped, runtime.NumGoroutine(),
				)
			}
		}
	}()
	return nil
}

// stopHeartbeats signals every heartbeat goroutine started on this
// registry to exit; called from Stop alongside the resync loop.
func (r *Registry) stopHeartbeats() {
	r.mu.Lock()
	stops := append([]chan struct{}{}, r.heartbeatStops...)
	r.heartbeatStops = nil
	r.mu.Unlock()
	for _, s := range stops {
		close(s)
	}
}
