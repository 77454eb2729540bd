// Package clock provides the monotonic timestamp source producers read on
// the hot path, and the affine mapping the backend uses to convert those
// monotonic readings to wall-clock time without resampling the system clock
// on every record.
package clock

import (
	"math"
	"sync/atomic"
	"time"
)

// processStart anchors Now: readings are nanoseconds elapsed since it.
var processStart = time.Now()

// Now returns a monotonic nanosecond reading suitable for stamping a record
// on the producer hot path. It is backed by time.Now's monotonic reading
// (Go's runtime clock already reads a monotonic counter cheaply; there is
// no portable, allocation-free way to reach the raw TSC from pure Go), so
// the value is only meaningful relative to other values from this process.
func Now() int64 {
	return int64(time.Since(processStart))
}

// Source converts monotonic producer timestamps to wall-clock time via a
// once-computed (and optionally periodically recalibrated) affine mapping:
// wall = baseWall + (ts - baseTS) * scale. Resync runs on the registry's
// dedicated resync goroutine while ToWall runs on the backend goroutine, so
// every field it touches is an atomic rather than a plain int64.
type Source struct {
	baseWall atomic.Int64  // UnixNano at calibration time
	baseTS   atomic.Int64  // monotonic reading at calibration time
	scale    atomic.Uint64 // math.Float64bits of the scale factor
}

// NewSource calibrates a Source now: baseWall is the current wall clock,
// baseTS is the current monotonic reading, and scale starts at 1.0 (no
// drift correction until the first Resync).
func NewSource() *Source {
	s := &Source{}
	s.baseWall.Store(time.Now().UnixNano())
	s.baseTS.Store(Now())
	s.scale.Store(math.Float64bits(1.0))
	return s
}

// ToWall maps a monotonic timestamp (as returned by Now) to wall-clock
// nanoseconds since the Unix epoch, rounding toward negative infinity per
// the nanosecond field as specified for sub-second formatting.
func (s *Source) ToWall(ts int64) int64 {
	scale := math.Float64frombits(s.scale.Load())
	delta := float64(ts - s.baseTS.Load())
	return s.baseWall.Load() + int64(math.Floor(delta*scale))
}

// Resync recalibrates the mapping against the current wall clock. Intended
// to be called periodically (rdtsc_resync_interval in the backend options)
// to bound drift between the monotonic source and the wall clock over
// long-running processes. A non-positive elapsed monotonic interval since
// the last calibration is a no-op (clock did not advance).
func (s *Source) Resync() {
	newWall := time.Now().UnixNano()
	newTS := Now()
	elapsedTS := newTS - s.baseTS.Load()
	if elapsedTS <= 0 {
		return
	}
	elapsedWall := newWall - s.baseWall.Load()
	newScale := float64(elapsedWall) / float64(elapsedTS)
	s.baseWall.Store(newWall)
	s.baseTS.Store(newTS)
	s.scale.Store(math.Float64bits(newScale))
}

// WallTime returns ToWall(ts) as a time.Time in the given location.
func (s *Source) WallTime(ts int64, loc *time.Location) time.Time {
	return time.Unix(0, s.ToWall(ts)).In(loc)
}
