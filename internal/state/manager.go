package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/vzahanych/styleai/internal/logger"
)

// Well-known system_state keys
const (
	KeyEstimatorMode = "estimator_mode"
	KeyLastStartedAt = "last_started_at"
)

// Manager manages persisted counters and cached recommendations
type Manager struct {
	db     *Database
	logger *logger.Logger
	mu     sync.RWMutex
}

// NewManager opens the database at dbPath
func NewManager(dbPath string, log *logger.Logger) (*Manager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return &Manager{
		db:     db,
		logger: log,
	}, nil
}

// Close closes the state manager and database
func (m *Manager) Close() error {
	return m.db.Close()
}

// GetDB returns the database connection
func (m *Manager) GetDB() *sql.DB {
	return m.db.GetDB()
}

// Ping verifies the database is reachable
func (m *Manager) Ping(ctx context.Context) error {
	return m.db.GetDB().PingContext(ctx)
}

// SaveSystemState saves a system state value
func (m *Manager) SaveSystemState(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	query := `
		INSERT INTO system_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	if _, err := m.db.GetDB().ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save system state: %w", err)
	}

	return nil
}

// GetSystemState retrieves a system state value, empty when absent
func (m *Manager) GetSystemState(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var value string
	err := m.db.GetDB().QueryRowContext(ctx, `SELECT value FROM system_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get system state: %w", err)
	}

	return value, nil
}

// RecordStartup stores the estimator mode and start time of this process
func (m *Manager) RecordStartup(ctx context.Context, estimatorMode string) error {
	if err := m.SaveSystemState(ctx, KeyEstimatorMode, estimatorMode); err != nil {
		return err
	}
	if err := m.SaveSystemState(ctx, KeyLastStartedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	purged, err := m.PurgeExpiredRecommendations(ctx)
	if err != nil {
		m.logger.Warn("Failed to purge expired recommendations", "error", err)
	} else if purged > 0 {
		m.logger.Info("Purged expired recommendations", "count", purged)
	}
	return nil
}
