package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// channelObserver forwards events into a channel for synchronization.
type channelObserver struct {
	name   string
	filter EventFilter
	events chan Event
}

func newChannelObserver(name string) *channelObserver {
	return &channelObserver{name: name, events: make(chan Event, 16)}
}

func (o *channelObserver) Name() string        { return o.name }
func (o *channelObserver) Filter() EventFilter { return o.filter }

func (o *channelObserver) OnEvent(ctx context.Context, event Event) error {
	o.events <- event
	return nil
}

func (o *channelObserver) wait(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-o.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

type statusOnlyFilter struct{}

func (statusOnlyFilter) ShouldNotify(event Event) bool {
	return event.Type == EventCellStatus
}

func TestManager_RegisterAndCount(t *testing.T) {
	m := NewManager()

	require.NoError(t, m.Register(newChannelObserver("a")))
	require.NoError(t, m.Register(newChannelObserver("b")))
	assert.Equal(t, 2, m.Count())

	err := m.Register(newChannelObserver("a"))
	assert.Error(t, err, "duplicate names are rejected")
}

func TestManager_Unregister(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(newChannelObserver("a")))

	require.NoError(t, m.Unregister("a"))
	assert.Zero(t, m.Count())
	assert.Error(t, m.Unregister("a"))
}

func TestManager_NotifyDeliversToAll(t *testing.T) {
	m := NewManager()
	a := newChannelObserver("a")
	b := newChannelObserver("b")
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))

	m.Notify(context.Background(), Event{Type: EventCellStatus, CellID: "c1"})

	assert.Equal(t, "c1", a.wait(t).CellID)
	assert.Equal(t, "c1", b.wait(t).CellID)
}

func TestManager_FilterSuppressesEvents(t *testing.T) {
	m := NewManager()
	obs := newChannelObserver("filtered")
	obs.filter = statusOnlyFilter{}
	require.NoError(t, m.Register(obs))

	m.Notify(context.Background(), Event{Type: EventCellsUpdated})
	m.Notify(context.Background(), Event{Type: EventCellStatus, CellID: "c1"})

	// Only the status event arrives.
	e := obs.wait(t)
	assert.Equal(t, EventCellStatus, e.Type)
	select {
	case extra := <-obs.events:
		t.Fatalf("unexpected extra event: %v", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_SubscriberBridgesReactorTransitions(t *testing.T) {
	m := NewManager()
	obs := newChannelObserver("bridge")
	require.NoError(t, m.Register(obs))

	subscriber := m.Subscriber()
	state := models.CellState{CellID: "c1", Status: models.StatusRunning}
	subscriber("c1", state)

	event := obs.wait(t)
	assert.Equal(t, EventCellStatus, event.Type)
	assert.Equal(t, "c1", event.CellID)
	require.NotNil(t, event.State)
	assert.Equal(t, models.StatusRunning, event.State.Status)
}

func TestManager_PanickingObserverIsContained(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(panicObserver{}))
	healthy := newChannelObserver("healthy")
	require.NoError(t, m.Register(healthy))

	m.Notify(context.Background(), Event{Type: EventCellStatus, CellID: "c1"})

	// The panic is recovered; the healthy observer still hears the event.
	assert.Equal(t, "c1", healthy.wait(t).CellID)
}

type panicObserver struct{}

func (panicObserver) Name() string        { return "panics" }
func (panicObserver) Filter() EventFilter { return nil }
func (panicObserver) OnEvent(ctx context.Context, event Event) error {
	panic("observer exploded")
}
