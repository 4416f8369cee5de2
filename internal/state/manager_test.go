package state

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/vzahanych/styleai/internal/logger"
)

func TestNewManager(t *testing.T) {
	mgr := setupTestManager(t)

	if mgr.GetDB() == nil {
		t.Error("Database should be initialized")
	}

	if err := mgr.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestManager_SaveSystemState(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	if err := mgr.SaveSystemState(ctx, KeyEstimatorMode, "heuristic"); err != nil {
		t.Fatalf("SaveSystemState failed: %v", err)
	}

	value, err := mgr.GetSystemState(ctx, KeyEstimatorMode)
	if err != nil {
		t.Fatalf("GetSystemState failed: %v", err)
	}

	if value != "heuristic" {
		t.Errorf("Expected 'heuristic', got '%s'", value)
	}
}

func TestManager_GetSystemState_NotFound(t *testing.T) {
	mgr := setupTestManager(t)

	value, err := mgr.GetSystemState(context.Background(), "nonexistent_key")
	if err != nil {
		t.Fatalf("GetSystemState failed: %v", err)
	}

	if value != "" {
		t.Errorf("Expected empty string for nonexistent key, got '%s'", value)
	}
}

func TestManager_SaveSystemState_Update(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	if err := mgr.SaveSystemState(ctx, KeyEstimatorMode, "model"); err != nil {
		t.Fatalf("SaveSystemState failed: %v", err)
	}
	if err := mgr.SaveSystemState(ctx, KeyEstimatorMode, "heuristic"); err != nil {
		t.Fatalf("SaveSystemState update failed: %v", err)
	}

	value, err := mgr.GetSystemState(ctx, KeyEstimatorMode)
	if err != nil {
		t.Fatalf("GetSystemState failed: %v", err)
	}

	if value != "heuristic" {
		t.Errorf("Expected 'heuristic', got '%s'", value)
	}
}

func TestManager_RecordStartup(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	if err := mgr.RecordStartup(ctx, "model"); err != nil {
		t.Fatalf("RecordStartup failed: %v", err)
	}

	mode, _ := mgr.GetSystemState(ctx, KeyEstimatorMode)
	if mode != "model" {
		t.Errorf("Expected estimator mode 'model', got '%s'", mode)
	}

	started, _ := mgr.GetSystemState(ctx, KeyLastStartedAt)
	if started == "" {
		t.Error("Start time should be recorded")
	}
}

func TestManager_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "styleai.db")
	ctx := context.Background()

	mgr, err := NewManager(dbPath, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if err := mgr.IncrementOutcome(ctx, OutcomeAccepted, ""); err != nil {
		t.Fatalf("IncrementOutcome failed: %v", err)
	}
	mgr.Close()

	mgr2, err := NewManager(dbPath, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to reopen manager: %v", err)
	}
	defer mgr2.Close()

	stats, err := mgr2.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts failed: %v", err)
	}
	if stats.Accepted != 1 {
		t.Errorf("Expected 1 accepted after reopen, got %d", stats.Accepted)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	mgr := setupTestManager(t)
	ctx := context.Background()

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(idx int) {
			if err := mgr.SaveSystemState(ctx, fmt.Sprintf("key_%d", idx), "value"); err != nil {
				t.Errorf("Concurrent SaveSystemState failed: %v", err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key_%d", i)
		value, err := mgr.GetSystemState(ctx, key)
		if err != nil {
			t.Errorf("GetSystemState failed for %s: %v", key, err)
		}
		if value != "value" {
			t.Errorf("Expected 'value' for %s, got '%s'", key, value)
		}
	}
}
