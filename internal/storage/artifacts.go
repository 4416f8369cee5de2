package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vzahanych/styleai/internal/logger"
)

var (
	// ErrDownloadFailed is returned when an artifact could not be fetched after retrying
	ErrDownloadFailed = errors.New("artifact download failed")
	// ErrInsufficientSpace is returned when the artifact would push free space below the floor
	ErrInsufficientSpace = errors.New("insufficient disk space")
)

// Artifact is a file fetched on first use, such as a cascade or model weights
type Artifact struct {
	Name string
	URL  string
	Path string
}

// ArtifactStore downloads artifacts into the data directory when they are missing
type ArtifactStore struct {
	client     *http.Client
	disk       *DiskMonitor
	logger     *logger.Logger
	attempts   int
	retryDelay time.Duration
}

// NewArtifactStore creates an artifact store. disk may be nil.
func NewArtifactStore(disk *DiskMonitor, timeout time.Duration, log *logger.Logger) *ArtifactStore {
	return &ArtifactStore{
		client:     &http.Client{Timeout: timeout},
		disk:       disk,
		logger:     log,
		attempts:   2,
		retryDelay: time.Second,
	}
}

// Exists reports whether a non-empty file is present at path
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Ensure makes sure the artifact is on disk. It reports whether a download happened.
// A failed download is retried once before giving up.
func (s *ArtifactStore) Ensure(ctx context.Context, a Artifact) (bool, error) {
	if Exists(a.Path) {
		return false, nil
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			s.logger.Warn("Retrying artifact download",
				"artifact", a.Name,
				"attempt", attempt,
				"error", lastErr,
			)
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}

		lastErr = s.download(ctx, a)
		if lastErr == nil {
			return true, nil
		}
		if errors.Is(lastErr, ErrInsufficientSpace) {
			break
		}
	}

	return false, fmt.Errorf("%w: %s: %v", ErrDownloadFailed, a.Name, lastErr)
}

// EnsureAll ensures every artifact and stops at the first failure
func (s *ArtifactStore) EnsureAll(ctx context.Context, artifacts ...Artifact) error {
	for _, a := range artifacts {
		if _, err := s.Ensure(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *ArtifactStore) download(ctx context.Context, a Artifact) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, a.URL)
	}

	if s.disk != nil {
		ok, err := s.disk.HasRoomFor(ctx, resp.ContentLength)
		if err != nil {
			s.logger.Warn("Disk usage check failed", "error", err)
		} else if !ok {
			return ErrInsufficientSpace
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.Path), "."+filepath.Base(a.Path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("empty response from %s", a.URL)
	}

	if err := os.Rename(tmpName, a.Path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	if s.disk != nil {
		s.disk.Invalidate()
	}

	s.logger.Info("Artifact downloaded",
		"artifact", a.Name,
		"path", a.Path,
		"size", humanize.Bytes(uint64(n)),
		"duration", time.Since(start),
	)
	return nil
}
