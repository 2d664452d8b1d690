package testutil

import (
	"sync"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// CodeCell builds a code cell fixture.
func CodeCell(id, source string) *models.Cell {
	return &models.Cell{ID: id, Kind: models.CellKindCode, Source: source}
}

// QueryCell builds a data-query cell fixture.
func QueryCell(id, source, outputName string) *models.Cell {
	return &models.Cell{ID: id, Kind: models.CellKindQuery, Source: source, OutputName: outputName}
}

// Transition is one recorded subscriber notification.
type Transition struct {
	CellID string
	Status models.CellStatus
	State  models.CellState
}

// Recorder captures subscriber notifications in order.
type Recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Subscribe is the engine.StatusSubscriber to install.
func (r *Recorder) Subscribe(cellID string, state models.CellState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, Transition{
		CellID: cellID,
		Status: state.Status,
		State:  state,
	})
}

// Transitions returns everything recorded so far.
func (r *Recorder) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

// StatusSequence returns the recorded statuses for one cell, in order.
func (r *Recorder) StatusSequence(cellID string) []models.CellStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.CellStatus
	for _, tr := range r.transitions {
		if tr.CellID == cellID {
			out = append(out, tr.Status)
		}
	}
	return out
}
