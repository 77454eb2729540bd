// Command stress reproduces S4 from the testable-properties section: a
// deliberately undersized queue under the drop overflow policy, hammered
// by many concurrent producers, reporting how many records the backend
// actually dispatched versus how many were dropped. Adapted from the
// teacher's cmd/stress burst-generator.
package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/quillgo/quillgo"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/registry"
	"github.com/quillgo/quillgo/sinks"
)

const (
	numWorkers   = 200
	burstsPerWkr = 50
)

var levels = []record.Level{
	record.LevelDebug,
	record.LevelInfo,
	record.LevelWarning,
	record.LevelError,
}

func randomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

func main() {
	cfg := registry.DefaultConfig()
	cfg.QueueCapacity = 64
	cfg.OverflowPolicy = "drop"
	if err := quillgo.Init(cfg); err != nil {
		panic(err)
	}
	defer quillgo.Shutdown()

	reg, _ := quillgo.Current()
	if _, err := reg.CreateOrGetSink("null", "null", func() (sinks.Sink, error) {
		return sinks.NewNullSink(), nil
	}); err != nil {
		panic(err)
	}

	logger, err := quillgo.CreateOrGetLogger("stress", []string{"null"}, record.LevelDebug)
	if err != nil {
		panic(err)
	}

	fmt.Printf("starting %d workers x %d bursts against a %d-byte drop queue\n",
		numWorkers, burstsPerWkr, cfg.QueueCapacity)

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := 0; i < burstsPerWkr; i++ {
				level := levels[rand.Intn(len(levels))]
				msg := randomMessage(rand.Intn(200) + 10)
				switch level {
				case record.LevelDebug:
					logger.Debug("worker {} burst {}: {}", workerID, i, msg)
				case record.LevelInfo:
					logger.Info("worker {} burst {}: {}", workerID, i, msg)
				case record.LevelWarning:
					logger.Warning("worker {} burst {}: {}", workerID, i, msg)
				default:
					logger.Error("worker {} burst {}: {}", workerID, i, msg)
				}
			}
		}(w)
	}
	wg.Wait()
	fmt.Printf("producers finished in %s\n", time.Since(start))

	quillgo.FlushSync(200 * time.Millisecond)
	stats := reg.Stats()
	fmt.Printf("drained=%d dropped=%d (expected dropped > 0 given the undersized queue)\n",
		stats.Drained, stats.Dropped)
}
