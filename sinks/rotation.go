package sinks

import (
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quillgo/quillgo/formatter"
)

// RotationPolicy configures size-, age-, and interval-based rotation for a
// rotating file sink, mirroring lumberjack's own size/age/backup knobs plus
// an additional time-boundary knob (§4.5: "rotation by size, time, or
// both") that lumberjack itself does not provide.
type RotationPolicy struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// RotateInterval, if nonzero, forces a roll once this much wall time has
	// elapsed since the file was last rotated (or opened), independent of
	// size. Zero disables interval-based rotation; size rotation still
	// happens automatically on Write regardless of this setting.
	RotateInterval time.Duration
}

// rotatingFile wraps a lumberjack.Logger so the backend's periodic
// RotateIfNeeded housekeeping call only forces a roll when RotateInterval
// has actually elapsed, rather than on every housekeeping pass — lumberjack
// itself already handles size-based rotation transparently inside Write,
// so RotateIfNeeded's only job here is the optional time boundary.
type rotatingFile struct {
	lj       *lumberjack.Logger
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func newRotatingFile(lj *lumberjack.Logger, interval time.Duration) *rotatingFile {
	rf := &rotatingFile{lj: lj, interval: interval}
	if interval > 0 {
		rf.next = time.Now().Add(interval)
	}
	return rf
}

func (rf *rotatingFile) Write(p []byte) (int, error) { return rf.lj.Write(p) }
func (rf *rotatingFile) Sync() error                 { return nil }

// RotateIfDue rolls the file if RotateInterval has elapsed since the last
// roll, resetting the deadline; a no-op when RotateInterval is zero.
func (rf *rotatingFile) RotateIfDue() error {
	if rf.interval <= 0 {
		return nil
	}
	rf.mu.Lock()
	defer rf.mu.Unlock()
	now := time.Now()
	if now.Before(rf.next) {
		return nil
	}
	rf.next = now.Add(rf.interval)
	return rf.lj.Rotate()
}

// dueRotator is implemented by writers whose rotation is conditional on an
// elapsed interval, as opposed to the unconditional rotator capability.
type dueRotator interface {
	RotateIfDue() error
}

func newLumberjack(path string, policy RotationPolicy) *rotatingFile {
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    policy.MaxSizeMB,
		MaxBackups: policy.MaxBackups,
		MaxAge:     policy.MaxAgeDays,
		Compress:   policy.Compress,
	}
	return newRotatingFile(lj, policy.RotateInterval)
}

// NewRotatingFileSink creates a TextSink over a lumberjack-managed file at
// path, rolling by size automatically on every write and, if
// policy.RotateInterval is set, by elapsed time via RotateIfNeeded.
func NewRotatingFileSink(path string, policy RotationPolicy, pattern, tsLayout string, loc *time.Location, opts ...formatter.Option) (*TextSink, error) {
	f, err := formatter.New(pattern, tsLayout, loc, opts...)
	if err != nil {
		return nil, err
	}
	return NewTextSink(newLumberjack(path, policy), f), nil
}
