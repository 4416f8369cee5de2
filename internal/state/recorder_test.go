package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/telemetry"
)

func TestRecorder_RecordsEvents(t *testing.T) {
	mgr := setupTestManager(t)
	reg := telemetry.NewRegistry()
	bus := service.NewEventBus(10)
	defer bus.Close()

	rec := NewRecorder(mgr, reg, logger.NewNopLogger())
	rec.SetEventBus(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, rec.Start(ctx))

	bus.Publish(service.Event{Type: service.EventTypeProfileAccepted, Source: "profile"})
	bus.Publish(service.Event{
		Type:   service.EventTypeProfileRejected,
		Source: "profile",
		Data:   map[string]interface{}{"reason": "REJECT_NOFACE"},
	})

	require.Eventually(t, func() bool {
		stats, err := mgr.OutcomeCounts(context.Background())
		return err == nil && stats.Total == 2
	}, 2*time.Second, 20*time.Millisecond)

	stats, err := mgr.OutcomeCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByReason["REJECT_NOFACE"])
	assert.Equal(t, int64(1), reg.Value(telemetry.CounterRejections, map[string]string{"reason": "REJECT_NOFACE"}))
	assert.Equal(t, int64(1), reg.Value(telemetry.CounterAnalyses, map[string]string{"outcome": OutcomeAccepted}))

	require.NoError(t, rec.Stop(context.Background()))
	assert.Equal(t, service.StatusStopped, rec.GetStatus().GetStatus())
}

func TestRecorder_RequiresBus(t *testing.T) {
	rec := NewRecorder(setupTestManager(t), nil, logger.NewNopLogger())
	assert.Error(t, rec.Start(context.Background()))
}

func TestRecorder_OutlivesStartContext(t *testing.T) {
	mgr := setupTestManager(t)
	bus := service.NewEventBus(10)
	defer bus.Close()

	rec := NewRecorder(mgr, nil, logger.NewNopLogger())
	rec.SetEventBus(bus)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	require.NoError(t, rec.Start(ctx))
	cancel()
	defer rec.Stop(context.Background())

	bus.Publish(service.Event{Type: service.EventTypeProfileAccepted, Source: "profile"})

	require.Eventually(t, func() bool {
		stats, err := mgr.OutcomeCounts(context.Background())
		return err == nil && stats.Accepted == 1
	}, 2*time.Second, 20*time.Millisecond)
}
