// Package visualization renders the notebook's dependency graph as an ASCII
// tree, one branch per dependency edge, with per-cell status coloring.
package visualization

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/AJeffs1/reactive-notebook/pkg/graph"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// ASCIIRenderer renders dependency graphs as ASCII tree graphs.
type ASCIIRenderer struct{}

// NewASCIIRenderer creates a new ASCII renderer.
func NewASCIIRenderer() *ASCIIRenderer {
	return &ASCIIRenderer{}
}

// Format returns the format identifier.
func (r *ASCIIRenderer) Format() string {
	return "ascii"
}

// RenderOptions controls rendering.
type RenderOptions struct {
	// UseColor enables ANSI status colors; downgraded automatically when
	// stdout is not a terminal.
	UseColor bool

	// ShowSource includes the first line of each cell's source.
	ShowSource bool
}

// DefaultRenderOptions returns the default options.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{UseColor: true, ShowSource: true}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

// Box drawing characters
const (
	branchChar     = "├── "
	lastBranchChar = "└── "
	verticalChar   = "│   "
	emptyChar      = "    "
)

// Render draws the graph as a forest rooted at cells with no dependencies.
// A cell that reads from several producers appears under each of them.
func (r *ASCIIRenderer) Render(cells []*models.Cell, g graph.Graph, states map[string]models.CellState, opts *RenderOptions) string {
	if opts == nil {
		opts = DefaultRenderOptions()
	}
	useColor := opts.UseColor && isTerminal()

	byID := make(map[string]*models.Cell, len(cells))
	for _, cell := range cells {
		byID[cell.ID] = cell
	}

	forward := make(map[string][]string, len(g))
	for id, deps := range g {
		for _, dep := range deps.Sorted() {
			forward[dep] = append(forward[dep], id)
		}
	}
	for id := range forward {
		sort.Strings(forward[id])
	}

	var roots []string
	for _, cell := range cells {
		if len(g[cell.ID]) == 0 {
			roots = append(roots, cell.ID)
		}
	}
	if len(roots) == 0 && len(cells) > 0 {
		roots = []string{cells[0].ID}
	}

	var sb strings.Builder
	sb.WriteString("Notebook dependency graph\n")

	for _, root := range roots {
		r.renderNode(&sb, root, "", true, byID, forward, states, useColor, opts, map[string]bool{})
	}

	return sb.String()
}

func (r *ASCIIRenderer) renderNode(
	sb *strings.Builder,
	id string,
	prefix string,
	last bool,
	byID map[string]*models.Cell,
	forward map[string][]string,
	states map[string]models.CellState,
	useColor bool,
	opts *RenderOptions,
	onPath map[string]bool,
) {
	connector := ""
	if prefix != "" || sb.Len() > 0 {
		if last {
			connector = lastBranchChar
		} else {
			connector = branchChar
		}
	}

	sb.WriteString(prefix + connector + r.label(id, byID, states, useColor, opts) + "\n")

	// Guard against cycles: the renderer must stay usable on graphs the
	// engine will refuse to run.
	if onPath[id] {
		return
	}
	onPath[id] = true
	defer delete(onPath, id)

	children := forward[id]
	for i, child := range children {
		childPrefix := prefix
		if last {
			childPrefix += emptyChar
		} else {
			childPrefix += verticalChar
		}
		r.renderNode(sb, child, childPrefix, i == len(children)-1, byID, forward, states, useColor, opts, onPath)
	}
}

func (r *ASCIIRenderer) label(
	id string,
	byID map[string]*models.Cell,
	states map[string]models.CellState,
	useColor bool,
	opts *RenderOptions,
) string {
	status := models.StatusIdle
	if state, ok := states[id]; ok {
		status = state.Status
	}

	label := fmt.Sprintf("[%s] %s", id, status)
	if cell, ok := byID[id]; ok && opts.ShowSource {
		if line := firstLine(cell.Source); line != "" {
			label += "  " + line
		}
	}

	if useColor {
		label = statusColor(status) + label + colorReset
	}
	return label
}

func statusColor(status models.CellStatus) string {
	switch status {
	case models.StatusRunning:
		return colorYellow
	case models.StatusSuccess:
		return colorGreen
	case models.StatusError:
		return colorRed
	case models.StatusBlocked:
		return colorCyan
	default:
		return colorWhite
	}
}

func firstLine(source string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(source), "\n")
	if len(line) > 60 {
		line = line[:57] + "..."
	}
	return line
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
