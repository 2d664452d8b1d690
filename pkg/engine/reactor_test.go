package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/testutil"
)

// numberOf reads a numeric binding for assertions.
func numberOf(t *testing.T, exec *testutil.ScriptedExecutor, name string) float64 {
	t.Helper()
	v, ok := exec.Get(name)
	require.True(t, ok, "binding %q missing", name)
	f, ok := v.(float64)
	require.True(t, ok, "binding %q is %T", name, v)
	return f
}

func executedIDs(results []models.CellState) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.CellID)
	}
	return ids
}

func TestRun_SpreadsheetPropagation(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	cells := []*models.Cell{
		testutil.CodeCell("c1", "price = 100"),
		testutil.CodeCell("c2", "tax_rate = 0.1"),
		testutil.CodeCell("c3", "tax = price * tax_rate"),
		testutil.CodeCell("c4", "total = price + tax"),
	}
	reactor.SetCells(cells)

	price := 100.0
	exec.Script("c1", func(env map[string]any) (string, error) {
		env["price"] = price
		return "", nil
	})
	exec.Script("c2", func(env map[string]any) (string, error) {
		env["tax_rate"] = 0.1
		return "", nil
	})
	exec.Script("c3", func(env map[string]any) (string, error) {
		p, ok := env["price"].(float64)
		rate, ok2 := env["tax_rate"].(float64)
		if !ok || !ok2 {
			return "", fmt.Errorf("NameError: name is not defined")
		}
		env["tax"] = p * rate
		return "", nil
	})
	exec.Script("c4", func(env map[string]any) (string, error) {
		p, ok := env["price"].(float64)
		tax, ok2 := env["tax"].(float64)
		if !ok || !ok2 {
			return "", fmt.Errorf("NameError: name is not defined")
		}
		env["total"] = p + tax
		return "", nil
	})

	reactor.RunAll(nil)
	assert.Equal(t, 110.0, numberOf(t, exec, "total"))

	// Edit c1 and rerun: only c1 and its downstream re-execute.
	price = 200.0
	cells[0].Source = "price = 200"
	reactor.SetCells(cells)

	c2Runs := 0
	exec.Script("c2", func(env map[string]any) (string, error) {
		c2Runs++
		env["tax_rate"] = 0.1
		return "", nil
	})

	results := reactor.Run("c1", nil)

	assert.Equal(t, []string{"c1", "c3", "c4"}, executedIDs(results))
	assert.Zero(t, c2Runs)
	assert.Equal(t, 200.0, numberOf(t, exec, "price"))
	assert.Equal(t, 0.1, numberOf(t, exec, "tax_rate"))
	assert.Equal(t, 20.0, numberOf(t, exec, "tax"))
	assert.Equal(t, 220.0, numberOf(t, exec, "total"))

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		state, ok := reactor.GetState(id)
		require.True(t, ok)
		assert.Equal(t, models.StatusSuccess, state.Status, "cell %s", id)
	}
}

func TestRun_ErrorBlocksDownstream(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "x = 1/0"),
		testutil.CodeCell("c2", "y = x + 5"),
		testutil.CodeCell("c3", "z = y * 2"),
	})

	exec.Script("c1", func(env map[string]any) (string, error) {
		return "", fmt.Errorf("ZeroDivisionError: division by zero")
	})

	results := reactor.Run("c1", nil)
	require.Len(t, results, 3)

	c1 := results[0]
	assert.Equal(t, models.StatusError, c1.Status)
	require.NotNil(t, c1.Error)
	assert.Contains(t, *c1.Error, "division by zero")

	c2 := results[1]
	assert.Equal(t, models.StatusBlocked, c2.Status)
	require.NotNil(t, c2.BlockedBy)
	assert.Equal(t, "c1", *c2.BlockedBy)

	c3 := results[2]
	assert.Equal(t, models.StatusBlocked, c3.Status)
	require.NotNil(t, c3.BlockedBy)
	assert.Equal(t, "c2", *c3.BlockedBy)
}

func TestRun_IndependentCellUntouched(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "x = 10"),
		testutil.CodeCell("c2", "y = 20"),
		testutil.CodeCell("c3", "z = x + 5"),
	})

	results := reactor.Run("c1", nil)

	assert.Equal(t, []string{"c1", "c3"}, executedIDs(results))

	state, ok := reactor.GetState("c2")
	require.True(t, ok)
	assert.Equal(t, models.StatusIdle, state.Status)
}

func TestRun_LastWriterWins(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "x = 1"),
		testutil.CodeCell("c2", "x = 2"),
		testutil.CodeCell("c3", "y = x"),
	})

	exec.Script("c1", func(env map[string]any) (string, error) {
		env["x"] = 1.0
		return "", nil
	})
	exec.Script("c2", func(env map[string]any) (string, error) {
		env["x"] = 2.0
		return "", nil
	})
	exec.Script("c3", func(env map[string]any) (string, error) {
		env["y"] = env["x"]
		return "", nil
	})

	// c3 depends on the LAST writer of x, so running c1 touches c1 only.
	assert.Equal(t, []string{"c1"}, executedIDs(reactor.Run("c1", nil)))

	assert.Equal(t, []string{"c2", "c3"}, executedIDs(reactor.Run("c2", nil)))
	assert.Equal(t, 2.0, numberOf(t, exec, "x"))
	assert.Equal(t, 2.0, numberOf(t, exec, "y"))
}

func TestRun_CycleMarksAllMembers(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "b = a"),
		testutil.CodeCell("c2", "a = b"),
	})

	results := reactor.Run("c1", nil)

	require.Len(t, results, 2)
	for _, state := range results {
		assert.Equal(t, models.StatusError, state.Status)
		require.NotNil(t, state.Error)
		assert.Contains(t, *state.Error, "Circular dependency detected")
	}
}

func TestRun_AugmentedAssignmentChain(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	cells := []*models.Cell{
		testutil.CodeCell("c1", "counter = 0"),
		testutil.CodeCell("c2", "counter += 1"),
	}
	reactor.SetCells(cells)

	exec.Script("c1", func(env map[string]any) (string, error) {
		env["counter"] = 0.0
		return "", nil
	})
	exec.Script("c2", func(env map[string]any) (string, error) {
		prev, ok := env["counter"].(float64)
		if !ok {
			return "", fmt.Errorf("NameError: name 'counter' is not defined")
		}
		env["counter"] = prev + 1
		return "", nil
	})

	results := reactor.Run("c1", nil)
	assert.Equal(t, []string{"c1", "c2"}, executedIDs(results))
	assert.Equal(t, 1.0, numberOf(t, exec, "counter"))

	// Delete c1: its binding leaves the environment, and running c2 now
	// fails because the name is gone.
	reactor.SetCells(cells[1:])
	exec.Delete("counter")

	results = reactor.Run("c2", nil)
	require.Len(t, results, 1)
	assert.Equal(t, models.StatusError, results[0].Status)
	require.NotNil(t, results[0].Error)
	assert.Contains(t, *results[0].Error, "not defined")
}

func TestRun_UnknownCellIsNoOp(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)
	reactor.SetCells([]*models.Cell{testutil.CodeCell("c1", "x = 1")})

	results := reactor.Run("missing", nil)

	assert.Empty(t, results)
	state, ok := reactor.GetState("c1")
	require.True(t, ok)
	assert.Equal(t, models.StatusIdle, state.Status)
}

func TestRun_QueryCellWithoutExecutorFails(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.QueryCell("q1", "SELECT * FROM users", "users"),
	})

	results := reactor.Run("q1", nil)

	require.Len(t, results, 1)
	assert.Equal(t, models.StatusError, results[0].Status)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, "No database connection configured", *results[0].Error)
}

func TestRun_QueryCellDispatchesToQueryExecutor(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.QueryCell("q1", "SELECT * FROM users", "users"),
		testutil.CodeCell("c1", "count = len(users)"),
	})
	exec.Script("c1", func(env map[string]any) (string, error) {
		rows := env["users"].([]string)
		env["count"] = float64(len(rows))
		return "", nil
	})

	queryExec := func(cell *models.Cell) *engine.ExecutionResult {
		exec.Inject(cell.QueryBinding(), []string{"alice", "bob"})
		rendered := "<table></table>"
		return &engine.ExecutionResult{
			CellID:     cell.ID,
			Success:    true,
			Rendered:   &rendered,
			OutputKind: models.OutputHTML,
		}
	}

	results := reactor.Run("q1", queryExec)

	assert.Equal(t, []string{"q1", "c1"}, executedIDs(results))
	assert.Equal(t, models.StatusSuccess, results[0].Status)
	assert.Equal(t, models.OutputHTML, results[0].OutputKind)
	assert.Equal(t, 2.0, numberOf(t, exec, "count"))
}

func TestRunAll_ExecutesReachableCells(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "a = 1"),
		testutil.CodeCell("c2", "b = a + 1"),
		testutil.CodeCell("c3", "standalone = 99"),
	})

	results := reactor.RunAll(nil)

	// Unique states in first-seen order, every reachable cell present.
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, executedIDs(results))
	seen := map[string]int{}
	for _, r := range results {
		seen[r.CellID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "cell %s appears once in results", id)
	}
}

func TestRunAll_NoRootsSeedsFirstCell(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	// Every cell has upstream edges, so the run is seeded from the first
	// cell; here that immediately surfaces the cycle as errors.
	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "p = q"),
		testutil.CodeCell("c2", "q = p"),
	})

	results := reactor.RunAll(nil)

	require.NotEmpty(t, results)
	for _, state := range results {
		assert.Equal(t, models.StatusError, state.Status)
	}
}

func TestSetCells_StateLifecycle(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)

	cells := []*models.Cell{
		testutil.CodeCell("c1", "x = 1"),
		testutil.CodeCell("c2", "y = 2"),
	}
	reactor.SetCells(cells)
	assert.Len(t, reactor.AllStates(), 2)

	reactor.Run("c1", nil)

	// Adding keeps existing states untouched.
	cells = append(cells, testutil.CodeCell("c3", "z = 3"))
	reactor.SetCells(cells)

	states := reactor.AllStates()
	require.Len(t, states, 3)
	assert.Equal(t, models.StatusSuccess, states["c1"].Status)
	assert.Equal(t, models.StatusIdle, states["c3"].Status)

	// Removing drops the departed state.
	reactor.SetCells(cells[1:])
	states = reactor.AllStates()
	require.Len(t, states, 2)
	_, ok := states["c1"]
	assert.False(t, ok)
}

func TestReset_ClearsStatesAndEnvironment(t *testing.T) {
	exec := testutil.NewScriptedExecutor(map[string]any{"math": "seeded"})
	reactor := engine.NewReactor(exec)

	reactor.SetCells([]*models.Cell{testutil.CodeCell("c1", "x = 1")})
	exec.Script("c1", func(env map[string]any) (string, error) {
		env["x"] = 1.0
		return "rendered", nil
	})

	reactor.Run("c1", nil)
	state, _ := reactor.GetState("c1")
	require.Equal(t, models.StatusSuccess, state.Status)
	require.NotNil(t, state.Output)

	reactor.Reset()

	state, ok := reactor.GetState("c1")
	require.True(t, ok)
	assert.Equal(t, models.StatusIdle, state.Status)
	assert.Nil(t, state.Output)
	assert.Nil(t, state.Error)
	assert.Nil(t, state.BlockedBy)
	assert.Empty(t, state.Stdout)

	_, ok = exec.Get("x")
	assert.False(t, ok, "environment bindings from prior runs are gone")
	seeded, ok := exec.Get("math")
	require.True(t, ok, "seeded bindings are restored")
	assert.Equal(t, "seeded", seeded)
}

func TestRun_SubscriberSeesTransitionsInOrder(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)
	recorder := testutil.NewRecorder()
	reactor.SetStatusSubscriber(recorder.Subscribe)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "a = 1"),
		testutil.CodeCell("c2", "b = a"),
	})

	reactor.Run("c1", nil)

	assert.Equal(t,
		[]models.CellStatus{models.StatusRunning, models.StatusSuccess},
		recorder.StatusSequence("c1"))
	assert.Equal(t,
		[]models.CellStatus{models.StatusRunning, models.StatusSuccess},
		recorder.StatusSequence("c2"))

	// c1's transitions fully precede c2's.
	transitions := recorder.Transitions()
	require.Len(t, transitions, 4)
	assert.Equal(t, "c1", transitions[0].CellID)
	assert.Equal(t, "c1", transitions[1].CellID)
	assert.Equal(t, "c2", transitions[2].CellID)
	assert.Equal(t, "c2", transitions[3].CellID)
}

func TestRun_BlockedCellReportsBlocker(t *testing.T) {
	exec := testutil.NewScriptedExecutor(nil)
	reactor := engine.NewReactor(exec)
	recorder := testutil.NewRecorder()
	reactor.SetStatusSubscriber(recorder.Subscribe)

	reactor.SetCells([]*models.Cell{
		testutil.CodeCell("c1", "x = 1"),
		testutil.CodeCell("c2", "y = x"),
	})
	exec.Script("c1", func(env map[string]any) (string, error) {
		return "", fmt.Errorf("boom")
	})

	reactor.Run("c1", nil)

	// Blocked cells never transition through running.
	assert.Equal(t,
		[]models.CellStatus{models.StatusBlocked},
		recorder.StatusSequence("c2"))
}
