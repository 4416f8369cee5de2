package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vzahanych/styleai/internal/logger"
)

// defaultStopTimeout bounds each service's Stop call during Shutdown
const defaultStopTimeout = 10 * time.Second

// Manager owns the long-lived components of the process. Services start in
// registration order and stop in reverse, each Stop bounded by stopTimeout.
// Every lifecycle transition is published on the shared event bus.
type Manager struct {
	logger      *logger.Logger
	services    []Service
	byName      map[string]Service
	statuses    map[string]*ServiceStatus
	eventBus    *EventBus
	mu          sync.RWMutex
	started     []string
	stopTimeout time.Duration
	stopMonitor context.CancelFunc
}

// Service is a component with a lifecycle. Start must return once the service
// is ready; background work runs in goroutines the service owns until Stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
}

// ServiceWithEvents receives the manager's event bus on registration
type ServiceWithEvents interface {
	Service
	SetEventBus(bus *EventBus)
}

// NewManager creates a manager with its own event bus
func NewManager(log *logger.Logger) *Manager {
	return &Manager{
		logger:      log,
		byName:      make(map[string]Service),
		statuses:    make(map[string]*ServiceStatus),
		eventBus:    NewEventBus(100),
		stopTimeout: defaultStopTimeout,
	}
}

// GetEventBus returns the bus shared by all registered services
func (m *Manager) GetEventBus() *EventBus {
	return m.eventBus
}

// Register adds a service. Names must be unique; a later registration
// with the same name replaces the earlier one.
func (m *Manager) Register(svc Service) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := svc.Name()
	if _, exists := m.byName[name]; exists {
		for i, s := range m.services {
			if s.Name() == name {
				m.services = append(m.services[:i], m.services[i+1:]...)
				break
			}
		}
	}
	m.services = append(m.services, svc)
	m.byName[name] = svc
	m.statuses[name] = NewServiceStatus(name)

	if svcWithEvents, ok := svc.(ServiceWithEvents); ok {
		svcWithEvents.SetEventBus(m.eventBus)
	}
}

// Start starts every service in registration order. A failing service is
// marked as errored and the rest still start; the returned error names
// every service that failed.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Starting services", "count", len(m.services))
	m.startEventMonitoring()

	var failed []string
	for _, svc := range m.services {
		name := svc.Name()
		status := m.statuses[name]
		status.SetStatus(StatusStarting)

		if err := svc.Start(ctx); err != nil {
			status.SetError(err)
			failed = append(failed, name)
			m.logger.Error("Service failed to start", "service", name, "error", err)
			m.publish(EventTypeServiceError, name, map[string]interface{}{
				"service": name,
				"error":   err.Error(),
			})
			continue
		}

		m.started = append(m.started, name)
		status.SetStatus(StatusRunning)
		m.logger.Info("Service started", "service", name)
		m.publish(EventTypeServiceStarted, "manager", map[string]interface{}{
			"service": name,
		})
	}

	if len(failed) > 0 {
		return fmt.Errorf("services failed to start: %s", strings.Join(failed, ", "))
	}
	return nil
}

// startEventMonitoring logs every event at debug level until Shutdown
func (m *Manager) startEventMonitoring() {
	if m.stopMonitor != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopMonitor = cancel

	ch := m.eventBus.SubscribeAll()
	go func() {
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				m.logger.Debug("Event received",
					"type", event.Type,
					"source", event.Source,
					"timestamp", event.Timestamp,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) publish(t EventType, source string, data map[string]interface{}) {
	m.eventBus.Publish(Event{Type: t, Source: source, Data: data})
}

// Shutdown stops started services in reverse order, then closes the event bus.
// Stop errors are recorded on each service's status; the returned error is
// only for ctx expiring before every service stopped.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("Shutting down services", "count", len(m.started))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(m.started) - 1; i >= 0; i-- {
			m.stopService(ctx, m.byName[m.started[i]])
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}

	m.started = nil
	if m.stopMonitor != nil {
		m.stopMonitor()
		m.stopMonitor = nil
	}
	m.eventBus.Close()
	m.logger.Info("All services stopped")
	return nil
}

func (m *Manager) stopService(ctx context.Context, svc Service) {
	if svc == nil {
		return
	}
	name := svc.Name()
	status := m.statuses[name]
	status.SetStatus(StatusStopping)
	m.logger.Info("Stopping service", "service", name)

	stopCtx, cancel := context.WithTimeout(ctx, m.stopTimeout)
	defer cancel()

	if err := svc.Stop(stopCtx); err != nil {
		status.SetError(err)
		m.logger.Error("Error stopping service", "service", name, "error", err)
	} else {
		status.SetStatus(StatusStopped)
		m.logger.Info("Service stopped", "service", name)
	}

	m.publish(EventTypeServiceStopped, "manager", map[string]interface{}{
		"service": name,
	})
}

// GetServiceCount returns the number of registered services
func (m *Manager) GetServiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// GetServiceStatus returns the status of a service, nil when unknown
func (m *Manager) GetServiceStatus(serviceName string) *ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statuses[serviceName]
}

// GetAllStatuses returns a copy of the status map
func (m *Manager) GetAllStatuses() map[string]*ServiceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]*ServiceStatus, len(m.statuses))
	for name, status := range m.statuses {
		statuses[name] = status
	}
	return statuses
}
