package api

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// RuntimeMetrics holds memory and goroutine statistics
type RuntimeMetrics struct {
	Goroutines   int     `json:"goroutines"`
	AllocMB      float64 `json:"alloc_mb"`       // currently allocated heap
	TotalAllocMB float64 `json:"total_alloc_mb"` // cumulative allocated (includes freed)
	SysMB        float64 `json:"sys_mb"`         // total memory from OS
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	HeapSysMB    float64 `json:"heap_sys_mb"`
	HeapObjects  uint64  `json:"heap_objects"`
	NumGC        uint32  `json:"num_gc"`
}

const mb = 1024 * 1024

// ReadRuntimeMetrics collects current runtime statistics.
func ReadRuntimeMetrics() RuntimeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeMetrics{
		Goroutines:   runtime.NumGoroutine(),
		AllocMB:      float64(m.Alloc) / mb,
		TotalAllocMB: float64(m.TotalAlloc) / mb,
		SysMB:        float64(m.Sys) / mb,
		HeapAllocMB:  float64(m.HeapAlloc) / mb,
		HeapSysMB:    float64(m.HeapSys) / mb,
		HeapObjects:  m.HeapObjects,
		NumGC:        m.NumGC,
	}
}

// LogRuntimeMetrics logs runtime statistics every interval until ctx is done.
// It blocks; run it in its own goroutine.
func LogRuntimeMetrics(ctx context.Context, log *zap.Logger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := ReadRuntimeMetrics()
			log.Info("runtime metrics",
				zap.Int("goroutines", m.Goroutines),
				zap.Float64("alloc_mb", m.AllocMB),
				zap.Float64("sys_mb", m.SysMB),
				zap.Uint64("heap_objects", m.HeapObjects),
				zap.Uint32("gc_cycles", m.NumGC))
		}
	}
}
