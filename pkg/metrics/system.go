package metrics

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// StartSystemMetricsCollector starts a goroutine that samples runtime
// stats every 10 seconds until ctx is canceled.
func StartSystemMetricsCollector(ctx context.Context, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collectSystemMetrics()
			}
		}
	}()

	logger.Info("System metrics collector started")
}

// collectSystemMetrics collects current system metrics
func collectSystemMetrics() {
	m := Get()
	if m == nil {
		return
	}

	m.ProcessGoroutines.Set(float64(runtime.NumGoroutine()))

	var mStats runtime.MemStats
	runtime.ReadMemStats(&mStats)

	m.ProcessMemoryBytes.WithLabelValues("heap").Set(float64(mStats.HeapAlloc))
	m.ProcessMemoryBytes.WithLabelValues("stack").Set(float64(mStats.StackInuse))
	m.ProcessMemoryBytes.WithLabelValues("sys").Set(float64(mStats.Sys))
}
