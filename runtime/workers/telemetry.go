package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker samples the process itself on a fixed interval: CPU and
// resident memory via the OS, goroutine count from the Go runtime. The last
// sample feeds the health endpoint; nothing is shipped anywhere.
type TelemetryWorker struct {
	mu       sync.RWMutex
	interval time.Duration
	last     Sample
	log      *slog.Logger
}

type Sample struct {
	CPUPercent float64   `json:"cpu_percent"`
	RAMPercent float32   `json:"ram_percent"`
	Goroutines int       `json:"goroutines"`
	At         time.Time `json:"at"`
}

func NewTelemetryWorker(interval time.Duration, log *slog.Logger) *TelemetryWorker {
	return &TelemetryWorker{interval: interval, log: log}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping telemetry")
			return nil
		case <-ticker.C:
			cpu, err := self.CPUPercent()
			if err != nil {
				w.log.Debug("Error while reading process cpu usage", "error", err)
				continue
			}
			ram, err := self.MemoryPercent()
			if err != nil {
				w.log.Debug("Error while reading process ram usage", "error", err)
				continue
			}

			sample := Sample{
				CPUPercent: cpu,
				RAMPercent: ram,
				Goroutines: runtime.NumGoroutine(),
				At:         time.Now().UTC(),
			}
			w.mu.Lock()
			w.last = sample
			w.mu.Unlock()

			w.log.Debug("Process sample",
				"cpu_percent", sample.CPUPercent,
				"ram_percent", sample.RAMPercent,
				"goroutines", sample.Goroutines)
		}
	}
}

// Last returns the most recent sample, zero-valued before the first tick.
func (w *TelemetryWorker) Last() Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}
