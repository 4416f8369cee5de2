package state

import (
	"context"
	"fmt"
	"time"
)

// Outcome values stored in pipeline_outcomes
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// OutcomeStats summarises pipeline outcomes since the database was created
type OutcomeStats struct {
	Total     int64            `json:"total"`
	Accepted  int64            `json:"accepted"`
	Rejected  int64            `json:"rejected"`
	ByReason  map[string]int64 `json:"rejections_by_reason"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// IncrementOutcome adds one to the counter for outcome and reason
func (m *Manager) IncrementOutcome(ctx context.Context, outcome, reason string) error {
	if outcome != OutcomeAccepted && outcome != OutcomeRejected {
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	query := `
		INSERT INTO pipeline_outcomes (outcome, reason, count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(outcome, reason) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
	`

	if _, err := m.db.GetDB().ExecContext(ctx, query, outcome, reason, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to increment outcome: %w", err)
	}
	return nil
}

// OutcomeCounts returns the aggregated outcome counters
func (m *Manager) OutcomeCounts(ctx context.Context) (*OutcomeStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, err := m.db.GetDB().QueryContext(ctx, `SELECT outcome, reason, count, updated_at FROM pipeline_outcomes`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	stats := &OutcomeStats{ByReason: make(map[string]int64)}
	var latest int64
	for rows.Next() {
		var outcome, reason string
		var count, updatedAt int64
		if err := rows.Scan(&outcome, &reason, &count, &updatedAt); err != nil {
			return nil, err
		}

		stats.Total += count
		switch outcome {
		case OutcomeAccepted:
			stats.Accepted += count
		case OutcomeRejected:
			stats.Rejected += count
			stats.ByReason[reason] += count
		}
		if updatedAt > latest {
			latest = updatedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if latest > 0 {
		t := time.Unix(latest, 0).UTC()
		stats.UpdatedAt = &t
	}
	return stats, nil
}
