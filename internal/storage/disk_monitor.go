package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vzahanych/styleai/internal/logger"
)

// DiskMonitor reports free space on the filesystem holding the data directory
type DiskMonitor struct {
	path          string
	minFreeBytes  int64
	logger        *logger.Logger
	mu            sync.RWMutex
	lastCheck     time.Time
	cacheDuration time.Duration
	cachedUsage   *DiskUsage
}

// DiskUsage contains disk usage information
type DiskUsage struct {
	TotalBytes     int64
	UsedBytes      int64
	AvailableBytes int64
	UsagePercent   float64
}

// String renders the usage for logs
func (u DiskUsage) String() string {
	return fmt.Sprintf("%s free of %s (%.1f%% used)",
		humanize.IBytes(uint64(u.AvailableBytes)),
		humanize.IBytes(uint64(u.TotalBytes)),
		u.UsagePercent)
}

// NewDiskMonitor creates a new disk monitor
func NewDiskMonitor(path string, minFreeBytes int64, log *logger.Logger) *DiskMonitor {
	return &DiskMonitor{
		path:          path,
		minFreeBytes:  minFreeBytes,
		logger:        log,
		cacheDuration: 30 * time.Second,
	}
}

// GetUsage returns current disk usage, cached for a short period
func (d *DiskMonitor) GetUsage(ctx context.Context) (*DiskUsage, error) {
	d.mu.RLock()
	if d.cachedUsage != nil && time.Since(d.lastCheck) < d.cacheDuration {
		usage := *d.cachedUsage
		d.mu.RUnlock()
		return &usage, nil
	}
	d.mu.RUnlock()

	usage, err := d.getDiskUsage()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cachedUsage = usage
	d.lastCheck = time.Now()
	d.mu.Unlock()

	return usage, nil
}

// HasRoomFor reports whether n more bytes fit while keeping minFreeBytes available.
// A negative n means the size is unknown and only the floor is checked.
func (d *DiskMonitor) HasRoomFor(ctx context.Context, n int64) (bool, error) {
	usage, err := d.GetUsage(ctx)
	if err != nil {
		return false, err
	}

	if n < 0 {
		n = 0
	}
	ok := usage.AvailableBytes-n >= d.minFreeBytes
	if !ok {
		d.logger.Warn("Low disk space",
			"path", d.path,
			"usage", usage.String(),
			"needed", humanize.IBytes(uint64(n)),
			"floor", humanize.IBytes(uint64(d.minFreeBytes)),
		)
	}
	return ok, nil
}

// Invalidate drops the cached usage so the next call reads the filesystem
func (d *DiskMonitor) Invalidate() {
	d.mu.Lock()
	d.cachedUsage = nil
	d.mu.Unlock()
}

func (d *DiskMonitor) getDiskUsage() (*DiskUsage, error) {
	absPath, err := filepath.Abs(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(absPath, &stat); err != nil {
		return nil, fmt.Errorf("failed to stat filesystem: %w", err)
	}

	totalBytes := int64(stat.Blocks) * int64(stat.Bsize)
	availableBytes := int64(stat.Bavail) * int64(stat.Bsize)
	usedBytes := totalBytes - availableBytes

	var usagePercent float64
	if totalBytes > 0 {
		usagePercent = float64(usedBytes) / float64(totalBytes) * 100.0
	}

	return &DiskUsage{
		TotalBytes:     totalBytes,
		UsedBytes:      usedBytes,
		AvailableBytes: availableBytes,
		UsagePercent:   usagePercent,
	}, nil
}
