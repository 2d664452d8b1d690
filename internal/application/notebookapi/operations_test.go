package notebookapi

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AJeffs1/reactive-notebook/internal/config"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/storage"
	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/testutil"
)

func newTestOperations(t *testing.T) (*Operations, *testutil.ScriptedExecutor) {
	t.Helper()

	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)
	store := storage.NewStore(nil)
	log := logger.New(config.LoggingConfig{Level: "error", Format: "text"})
	file := filepath.Join(t.TempDir(), "notebook.py")

	return New(reactor, store, file, log), exec
}

func TestOperations_CreateListAndGet(t *testing.T) {
	ops, _ := newTestOperations(t)

	cell, err := ops.CreateCell(CreateCellParams{Kind: models.CellKindCode, Source: "x = 1"})
	require.NoError(t, err)
	require.NotEmpty(t, cell.ID)

	cells := ops.Cells()
	require.Len(t, cells, 1)
	assert.Equal(t, cell.ID, cells[0].ID)

	states := ops.States()
	require.Len(t, states, 1)
	assert.Equal(t, models.StatusIdle, states[cell.ID].Status)

	got, state, err := ops.GetCell(cell.ID)
	require.NoError(t, err)
	assert.Equal(t, "x = 1", got.Source)
	require.NotNil(t, state)

	_, _, err = ops.GetCell("missing")
	assert.ErrorIs(t, err, ErrCellNotFound)
}

func TestOperations_CreateCellPlacement(t *testing.T) {
	ops, _ := newTestOperations(t)

	first, err := ops.CreateCell(CreateCellParams{Source: "a = 1"})
	require.NoError(t, err)
	_, err = ops.CreateCell(CreateCellParams{Source: "b = 2"})
	require.NoError(t, err)

	prepend := ""
	head, err := ops.CreateCell(CreateCellParams{Source: "c = 3", AfterID: &prepend})
	require.NoError(t, err)

	mid, err := ops.CreateCell(CreateCellParams{Source: "d = 4", AfterID: &first.ID})
	require.NoError(t, err)

	cells := ops.Cells()
	require.Len(t, cells, 4)
	assert.Equal(t, head.ID, cells[0].ID)
	assert.Equal(t, first.ID, cells[1].ID)
	assert.Equal(t, mid.ID, cells[2].ID)
}

func TestOperations_UpdateCell(t *testing.T) {
	ops, _ := newTestOperations(t)

	cell, err := ops.CreateCell(CreateCellParams{Source: "x = 1"})
	require.NoError(t, err)

	source := "x = 2"
	updated, err := ops.UpdateCell(cell.ID, UpdateCellParams{Source: &source})
	require.NoError(t, err)
	assert.Equal(t, "x = 2", updated.Source)

	_, err = ops.UpdateCell("missing", UpdateCellParams{Source: &source})
	assert.ErrorIs(t, err, ErrCellNotFound)
}

func TestOperations_DeleteCellCleansEnvironment(t *testing.T) {
	ops, exec := newTestOperations(t)

	cell, err := ops.CreateCell(CreateCellParams{Source: "x = 1\ny = 2"})
	require.NoError(t, err)

	exec.Script(cell.ID, func(env map[string]any) (string, error) {
		env["x"] = 1.0
		env["y"] = 2.0
		return "", nil
	})
	_, err = ops.RunCell(cell.ID)
	require.NoError(t, err)

	_, ok := exec.Get("x")
	require.True(t, ok)

	removed, err := ops.DeleteCell(cell.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, removed)

	_, ok = exec.Get("x")
	assert.False(t, ok)
	_, ok = exec.Get("y")
	assert.False(t, ok)

	assert.Empty(t, ops.Cells())
	assert.Empty(t, ops.States())
}

func TestOperations_RunCellUnknownID(t *testing.T) {
	ops, _ := newTestOperations(t)

	_, err := ops.RunCell("missing")
	assert.ErrorIs(t, err, ErrCellNotFound)
}

func TestOperations_RunAllAndReset(t *testing.T) {
	ops, exec := newTestOperations(t)

	c1, err := ops.CreateCell(CreateCellParams{Source: "a = 1"})
	require.NoError(t, err)
	c2, err := ops.CreateCell(CreateCellParams{Source: "b = a + 1"})
	require.NoError(t, err)

	exec.Script(c1.ID, func(env map[string]any) (string, error) {
		env["a"] = 1.0
		return "", nil
	})
	exec.Script(c2.ID, func(env map[string]any) (string, error) {
		env["b"] = env["a"].(float64) + 1
		return "", nil
	})

	results, err := ops.RunAll()
	require.NoError(t, err)
	assert.Len(t, results, 2)

	v, ok := exec.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, v)

	ops.Reset()

	for id, state := range ops.States() {
		assert.Equal(t, models.StatusIdle, state.Status, "cell %s", id)
	}
	_, ok = exec.Get("b")
	assert.False(t, ok)
}

func TestOperations_SaveAndLoadRoundTrip(t *testing.T) {
	ops, _ := newTestOperations(t)

	created, err := ops.CreateCell(CreateCellParams{
		Kind:       models.CellKindQuery,
		Source:     "SELECT * FROM users",
		OutputName: "users",
	})
	require.NoError(t, err)
	require.NoError(t, ops.SaveNotebook())

	require.NoError(t, ops.LoadNotebook())

	cells := ops.Cells()
	require.Len(t, cells, 1)
	assert.Equal(t, created.ID, cells[0].ID)
	assert.Equal(t, models.CellKindQuery, cells[0].Kind)
	assert.Equal(t, "users", cells[0].OutputName)
	assert.Equal(t, "SELECT * FROM users", cells[0].Source)
}

func TestOperations_LoadMissingFileYieldsEmptyNotebook(t *testing.T) {
	ops, _ := newTestOperations(t)

	err := ops.LoadNotebook()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(findRootError(err)))
	assert.Empty(t, ops.Cells())
}

func TestOperations_CellsChangedFires(t *testing.T) {
	ops, _ := newTestOperations(t)

	var notified int
	ops.CellsChanged = func(cells []*models.Cell) { notified++ }

	_, err := ops.CreateCell(CreateCellParams{Source: "x = 1"})
	require.NoError(t, err)
	assert.Equal(t, 1, notified)
}

func TestOperations_RunSurvivesFailingCell(t *testing.T) {
	ops, exec := newTestOperations(t)

	c1, err := ops.CreateCell(CreateCellParams{Source: "x = 1"})
	require.NoError(t, err)
	c2, err := ops.CreateCell(CreateCellParams{Source: "y = x"})
	require.NoError(t, err)

	exec.Script(c1.ID, func(env map[string]any) (string, error) {
		return "", fmt.Errorf("boom")
	})

	results, err := ops.RunCell(c1.ID)
	require.NoError(t, err, "cell failure is state, not an operation error")
	require.Len(t, results, 2)
	assert.Equal(t, models.StatusError, results[0].Status)
	assert.Equal(t, models.StatusBlocked, results[1].Status)
	assert.Equal(t, c2.ID, results[1].CellID)
}

func findRootError(err error) error {
	for {
		unwrapped, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := unwrapped.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
