package state

import (
	"context"
	"fmt"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/telemetry"
)

// Recorder persists profile outcome events as counters
type Recorder struct {
	*service.ServiceBase
	mgr      *Manager
	registry *telemetry.Registry
	cancel   context.CancelFunc
}

// NewRecorder creates the outcome recorder. registry may be nil.
func NewRecorder(mgr *Manager, registry *telemetry.Registry, log *logger.Logger) *Recorder {
	return &Recorder{
		ServiceBase: service.NewServiceBase("stats-recorder", log),
		mgr:         mgr,
		registry:    registry,
	}
}

// Start subscribes to profile outcome events
func (r *Recorder) Start(ctx context.Context) error {
	bus := r.GetEventBus()
	if bus == nil {
		return fmt.Errorf("stats recorder requires an event bus")
	}

	// Subscriptions live until Stop, not until the start context ends
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel

	onError := func(ev service.Event, err error) {
		r.LogError("Failed to record outcome", err, "type", ev.Type)
	}
	bus.SubscribeWithHandler(runCtx, service.EventTypeProfileAccepted, r.handle(OutcomeAccepted), onError)
	bus.SubscribeWithHandler(runCtx, service.EventTypeProfileRejected, r.handle(OutcomeRejected), onError)

	r.GetStatus().SetStatus(service.StatusRunning)
	r.LogInfo("Stats recorder started")
	return nil
}

// Stop unsubscribes from events
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}
	r.GetStatus().SetStatus(service.StatusStopped)
	r.LogInfo("Stats recorder stopped")
	return nil
}

func (r *Recorder) handle(outcome string) service.EventHandler {
	return func(ctx context.Context, ev service.Event) error {
		reason, _ := ev.Data["reason"].(string)

		if r.registry != nil {
			r.registry.Inc(ctx, telemetry.CounterAnalyses, map[string]string{"outcome": outcome}, 1)
			if outcome == OutcomeRejected {
				r.registry.Inc(ctx, telemetry.CounterRejections, map[string]string{"reason": reason}, 1)
			}
		}

		// The event context may already be cancelled during shutdown
		return r.mgr.IncrementOutcome(context.WithoutCancel(ctx), outcome, reason)
	}
}
