package observer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// Manager manages multiple observers with non-blocking notifications.
type Manager struct {
	observers []Observer
	logger    *logger.Logger
	mu        sync.RWMutex
}

// ManagerOption configures Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(l *logger.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a new observer manager.
func NewManager(opts ...ManagerOption) *Manager {
	mgr := &Manager{observers: make([]Observer, 0)}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Register adds an observer to the manager.
func (m *Manager) Register(observer Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, obs := range m.observers {
		if obs.Name() == observer.Name() {
			return fmt.Errorf("observer with name %q already registered", observer.Name())
		}
	}

	m.observers = append(m.observers, observer)
	return nil
}

// Unregister removes an observer by name.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, obs := range m.observers {
		if obs.Name() == name {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("observer %q not found", name)
}

// Count returns the number of registered observers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}

// Notify sends an event to all registered observers without blocking the
// caller: each observer runs on its own goroutine and errors are logged,
// never propagated.
func (m *Manager) Notify(ctx context.Context, event Event) {
	m.mu.RLock()
	observersCopy := make([]Observer, len(m.observers))
	copy(observersCopy, m.observers)
	m.mu.RUnlock()

	for _, obs := range observersCopy {
		go m.notifyObserver(ctx, obs, event)
	}
}

// notifyObserver notifies a single observer with panic recovery.
func (m *Manager) notifyObserver(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("Observer panic recovered",
					"observer", obs.Name(),
					"event_type", string(event.Type),
					"panic", r,
				)
			}
		}
	}()

	if filter := obs.Filter(); filter != nil && !filter.ShouldNotify(event) {
		return
	}

	if err := obs.OnEvent(ctx, event); err != nil {
		if m.logger != nil {
			m.logger.Error("Observer notification failed",
				"observer", obs.Name(),
				"event_type", string(event.Type),
				"error", err,
			)
		}
	}
}

// Subscriber adapts the manager to the Reactor's subscriber contract. The
// Reactor calls it synchronously per transition; delivery happens on
// observer goroutines.
func (m *Manager) Subscriber() engine.StatusSubscriber {
	return func(cellID string, state models.CellState) {
		m.Notify(context.Background(), Event{
			Type:      EventCellStatus,
			CellID:    cellID,
			State:     &state,
			Timestamp: time.Now().UTC(),
		})
	}
}

// NotifyCellsUpdated broadcasts a cell-list change.
func (m *Manager) NotifyCellsUpdated(cells []*models.Cell) {
	m.Notify(context.Background(), Event{
		Type:      EventCellsUpdated,
		Cells:     cells,
		Timestamp: time.Now().UTC(),
	})
}
