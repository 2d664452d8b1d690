package observer

import (
	"context"
	"time"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// EventType identifies the kind of notebook event being broadcast.
type EventType string

const (
	// EventCellStatus is emitted whenever a single cell's execution state changes.
	EventCellStatus EventType = "cell_status"
	// EventCellsUpdated is emitted whenever the notebook's cell list changes.
	EventCellsUpdated EventType = "cells_updated"
)

// Event is the payload delivered to observers.
type Event struct {
	Type      EventType
	CellID    string
	State     *models.CellState
	Cells     []*models.Cell
	Timestamp time.Time
}

// EventFilter decides whether an observer should be notified of an event.
type EventFilter interface {
	ShouldNotify(event Event) bool
}

// Observer receives notebook events from the Manager.
type Observer interface {
	Name() string
	Filter() EventFilter
	OnEvent(ctx context.Context, event Event) error
}
