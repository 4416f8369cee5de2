package state

import (
	"path/filepath"
	"testing"

	"github.com/vzahanych/styleai/internal/logger"
)

func setupTestManager(t *testing.T) *Manager {
	t.Helper()

	log, _ := logger.New(logger.LogConfig{Level: "info", Format: "text"})

	mgr, err := NewManager(filepath.Join(t.TempDir(), "db", "styleai.db"), log)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	return mgr
}
