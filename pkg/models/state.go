package models

// CellStatus is the lifecycle status of a cell.
type CellStatus string

const (
	StatusIdle    CellStatus = "idle"
	StatusRunning CellStatus = "running"
	StatusSuccess CellStatus = "success"
	StatusError   CellStatus = "error"
	StatusBlocked CellStatus = "blocked"
)

// OutputKind classifies a cell's rendered output.
type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputHTML  OutputKind = "html"
	OutputError OutputKind = "error"
)

// CellState is the mutable runtime record of a cell. One CellState exists
// per cell in the current list; the Reactor owns all mutations.
type CellState struct {
	CellID     string     `json:"cell_id"`
	Status     CellStatus `json:"status"`
	Output     *string    `json:"output"`
	OutputKind OutputKind `json:"output_type"`
	Stdout     string     `json:"stdout"`
	Error      *string    `json:"error"`
	Trace      *string    `json:"error_traceback"`

	// BlockedBy names the failed upstream cell; set only while Status is
	// StatusBlocked.
	BlockedBy *string `json:"blocked_by"`
}

// NewCellState returns an idle state for the given cell.
func NewCellState(cellID string) *CellState {
	return &CellState{
		CellID:     cellID,
		Status:     StatusIdle,
		OutputKind: OutputText,
	}
}

// Snapshot returns a copy of the state safe to hand to subscribers while the
// Reactor keeps mutating the original.
func (s *CellState) Snapshot() CellState {
	out := *s
	return out
}

// ResetToIdle returns the state to idle and clears every optional field.
func (s *CellState) ResetToIdle() {
	s.Status = StatusIdle
	s.Output = nil
	s.OutputKind = OutputText
	s.Stdout = ""
	s.Error = nil
	s.Trace = nil
	s.BlockedBy = nil
}
