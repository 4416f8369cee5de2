package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/storage"
)

func newCheck(name string) Check {
	return Check{
		Name:      name,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// SystemChecker reports process resource usage
type SystemChecker struct{}

func (c *SystemChecker) Name() string {
	return "system"
}

func (c *SystemChecker) Check(ctx context.Context) Check {
	check := newCheck(c.Name())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	check.Details["goroutines"] = runtime.NumGoroutine()
	check.Details["heap_alloc"] = humanize.IBytes(mem.HeapAlloc)
	check.Details["num_gc"] = mem.NumGC

	check.Status = StatusHealthy
	check.Message = "System resources OK"

	return check
}

// Pinger is a database handle that can be pinged
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks database connectivity
type DatabaseChecker struct {
	db Pinger
}

func NewDatabaseChecker(db Pinger) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (c *DatabaseChecker) Name() string {
	return "database"
}

func (c *DatabaseChecker) Check(ctx context.Context) Check {
	check := newCheck(c.Name())

	if c.db == nil {
		check.Status = StatusDegraded
		check.Message = "Database not configured"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.db.Ping(ctx); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("Database ping failed: %v", err)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Database connection OK"

	return check
}

// ModelStatusSource reports the active gender estimator
type ModelStatusSource interface {
	Status(ctx context.Context) gender.Status
}

// GenderModelChecker reports degraded when the estimator fell back to the heuristic
type GenderModelChecker struct {
	source ModelStatusSource
}

func NewGenderModelChecker(source ModelStatusSource) *GenderModelChecker {
	return &GenderModelChecker{source: source}
}

func (c *GenderModelChecker) Name() string {
	return "gender_model"
}

func (c *GenderModelChecker) Check(ctx context.Context) Check {
	check := newCheck(c.Name())

	status := c.source.Status(ctx)
	check.Details["mode"] = status.Mode

	if status.Degraded {
		check.Status = StatusDegraded
		check.Message = "Using heuristic estimator: " + status.Reason
		return check
	}

	check.Status = StatusHealthy
	check.Message = fmt.Sprintf("Gender estimator in %s mode", status.Mode)
	return check
}

// RecommenderChecker checks that the recommendation API is configured and reachable
type RecommenderChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewRecommenderChecker(baseURL, apiKey string) *RecommenderChecker {
	return &RecommenderChecker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

func (c *RecommenderChecker) Name() string {
	return "recommender"
}

func (c *RecommenderChecker) Check(ctx context.Context) Check {
	check := newCheck(c.Name())
	check.Details["url"] = c.baseURL

	if c.baseURL == "" || c.apiKey == "" {
		check.Status = StatusDegraded
		check.Message = "Recommender API key or URL not configured"
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Failed to create request: %v", err)
		return check
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Recommender unreachable: %v", err)
		return check
	}
	defer resp.Body.Close()

	check.Details["status_code"] = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("Recommender returned status %d", resp.StatusCode)
		return check
	}

	check.Status = StatusHealthy
	check.Message = "Recommender is reachable"
	return check
}

// StorageChecker checks that data directories are usable and disk space is above the floor
type StorageChecker struct {
	dirs []string
	disk *storage.DiskMonitor
}

func NewStorageChecker(disk *storage.DiskMonitor, dirs ...string) *StorageChecker {
	return &StorageChecker{
		dirs: dirs,
		disk: disk,
	}
}

func (c *StorageChecker) Name() string {
	return "storage"
}

func (c *StorageChecker) Check(ctx context.Context) Check {
	check := newCheck(c.Name())

	for _, dir := range c.dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("Failed to create directory %s: %v", dir, err)
			return check
		}
	}
	check.Details["dirs"] = c.dirs

	if c.disk != nil {
		usage, err := c.disk.GetUsage(ctx)
		if err != nil {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Disk usage unavailable: %v", err)
			return check
		}
		check.Details["disk"] = usage.String()

		ok, err := c.disk.HasRoomFor(ctx, 0)
		if err == nil && !ok {
			check.Status = StatusDegraded
			check.Message = "Low disk space"
			return check
		}
	}

	check.Status = StatusHealthy
	check.Message = "Storage directories accessible"

	return check
}
