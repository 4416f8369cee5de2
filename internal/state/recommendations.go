package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// CachedRecommendation is recommendation text stored for reuse
type CachedRecommendation struct {
	Key       string    `msgpack:"key"`
	Text      string    `msgpack:"text"`
	Model     string    `msgpack:"model"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// SaveRecommendation stores rec until ttl elapses, replacing any previous entry for the key
func (m *Manager) SaveRecommendation(ctx context.Context, rec CachedRecommendation, ttl time.Duration) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("failed to encode recommendation: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	query := `
		INSERT INTO recommendations (cache_key, payload, model, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			model = excluded.model,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`

	_, err = m.db.GetDB().ExecContext(ctx, query,
		rec.Key, payload, rec.Model, rec.CreatedAt.Unix(), rec.CreatedAt.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to save recommendation: %w", err)
	}
	return nil
}

// GetRecommendation returns the cached entry for key. Expired entries are reported as missing.
func (m *Manager) GetRecommendation(ctx context.Context, key string) (*CachedRecommendation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var payload []byte
	err := m.db.GetDB().QueryRowContext(ctx,
		`SELECT payload FROM recommendations WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recommendation: %w", err)
	}

	var rec CachedRecommendation
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("failed to decode recommendation: %w", err)
	}
	return &rec, true, nil
}

// PurgeExpiredRecommendations deletes expired cache rows and returns how many were removed
func (m *Manager) PurgeExpiredRecommendations(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.db.GetDB().ExecContext(ctx, `DELETE FROM recommendations WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge recommendations: %w", err)
	}
	return res.RowsAffected()
}
