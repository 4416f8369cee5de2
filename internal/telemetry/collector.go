package telemetry

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/storage"
)

// Snapshot is a point-in-time view of process and application metrics
type Snapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	System      SystemMetrics      `json:"system"`
	Application ApplicationMetrics `json:"application"`
}

// SystemMetrics describes the process and its data volume
type SystemMetrics struct {
	Goroutines       int     `json:"goroutines"`
	HeapAllocBytes   uint64  `json:"heap_alloc_bytes"`
	SysBytes         uint64  `json:"sys_bytes"`
	NumGC            uint32  `json:"num_gc"`
	DiskTotalBytes   int64   `json:"disk_total_bytes"`
	DiskFreeBytes    int64   `json:"disk_free_bytes"`
	DiskUsagePercent float64 `json:"disk_usage_percent"`
}

// ApplicationMetrics describes the profile and recommendation workload
type ApplicationMetrics struct {
	EstimatorMode string           `json:"estimator_mode"`
	Counters      map[string]int64 `json:"counters"`
}

// Collector gathers metrics snapshots on a fixed interval
type Collector struct {
	*service.ServiceBase
	registry *Registry
	disk     *storage.DiskMonitor
	mode     func() string
	interval time.Duration

	mu     sync.RWMutex
	last   *Snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector creates a new collector. disk and mode may be nil.
func NewCollector(registry *Registry, disk *storage.DiskMonitor, mode func() string, interval time.Duration, log *logger.Logger) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Collector{
		ServiceBase: service.NewServiceBase("telemetry-collector", log),
		registry:    registry,
		disk:        disk,
		mode:        mode,
		interval:    interval,
	}
}

// Start begins periodic collection
func (c *Collector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	c.Collect(runCtx)
	go c.run(runCtx)

	c.GetStatus().SetStatus(service.StatusRunning)
	c.LogInfo("Telemetry collector started", "interval", c.interval)
	return nil
}

// Stop stops periodic collection
func (c *Collector) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.GetStatus().SetStatus(service.StatusStopped)
	c.LogInfo("Telemetry collector stopped")
	return nil
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect gathers a fresh snapshot and stores it as the latest
func (c *Collector) Collect(ctx context.Context) *Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	snap := &Snapshot{
		Timestamp: time.Now().UTC(),
		System: SystemMetrics{
			Goroutines:     runtime.NumGoroutine(),
			HeapAllocBytes: m.HeapAlloc,
			SysBytes:       m.Sys,
			NumGC:          m.NumGC,
		},
		Application: ApplicationMetrics{
			Counters: map[string]int64{},
		},
	}

	if c.disk != nil {
		usage, err := c.disk.GetUsage(ctx)
		if err != nil {
			c.LogWarn("Failed to collect disk usage", "error", err)
		} else {
			snap.System.DiskTotalBytes = usage.TotalBytes
			snap.System.DiskFreeBytes = usage.AvailableBytes
			snap.System.DiskUsagePercent = usage.UsagePercent
		}
	}

	if c.mode != nil {
		snap.Application.EstimatorMode = c.mode()
	}
	if c.registry != nil {
		snap.Application.Counters = c.registry.SnapshotJSON()
	}

	c.mu.Lock()
	c.last = snap
	c.mu.Unlock()

	return snap
}

// Last returns the most recent snapshot, collecting one if none exists
func (c *Collector) Last(ctx context.Context) *Snapshot {
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()
	if last != nil {
		return last
	}
	return c.Collect(ctx)
}
