// Command simple demonstrates the minimum Init/CreateOrGetLogger/log/
// Shutdown lifecycle against a console sink, adapted from the teacher's
// cmd/simple example.
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/quillgo/quillgo"
	"github.com/quillgo/quillgo/record"
	"github.com/quillgo/quillgo/registry"
	"github.com/quillgo/quillgo/sinks"
)

func main() {
	fmt.Println("--- Simple Logger Example ---")

	cfg := registry.DefaultConfig()
	if err := quillgo.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logger initialized.")

	reg, _ := quillgo.Current()
	if _, err := reg.CreateOrGetSink("console", "text", func() (sinks.Sink, error) {
		return sinks.NewConsoleSink(sinks.StreamStdout, true, "%(time) %(log_level) %(message)", "%Y-%m-%d %H:%M:%S", time.Local)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create sink: %v\n", err)
		os.Exit(1)
	}

	logger, err := quillgo.CreateOrGetLogger("app", []string{"console"}, record.LevelDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Debug("This is a debug message, user_id={}", 123)
	logger.Info("Application starting...")
	logger.Warning("Potential issue detected, threshold={}", 0.95)
	logger.Error("An error occurred, code={}", 500)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("Goroutine {} started", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logger.Info("Goroutine {} finished", id)
		}(i)
	}
	wg.Wait()
	fmt.Println("Goroutines finished.")

	fmt.Println("Shutting down logger...")
	if err := quillgo.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
	} else {
		fmt.Println("Logger shutdown complete.")
	}
	fmt.Println("--- Example Finished ---")
}
