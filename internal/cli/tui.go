package cli

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/repobubbles/pkg/diagram"
	"github.com/matzehuels/repobubbles/pkg/engine"
	errs "github.com/matzehuels/repobubbles/pkg/errors"
	"github.com/matzehuels/repobubbles/pkg/pipeline"
)

// List styles
var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	listHeaderStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// Sort orders for the circle table.
const (
	sortByPath = iota
	sortByRadius
	sortByMoved
	sortModes
)

var sortNames = [sortModes]string{"path", "radius", "moved"}

// =============================================================================
// inspect command
// =============================================================================

// inspectCommand creates the inspect command: an interactive table of the
// laid-out circles that can re-run the layout to watch positions settle.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		noCache bool
		in      inputFlags
	)
	opts := c.canvasOpts()

	cmd := &cobra.Command{
		Use:   "inspect <dir|tree.json>",
		Short: "Browse the circles of a layout interactively",
		Long: `Browse the circles of a layout interactively.

The inspect command lays out a codebase and shows every circle with its
position and radius. Press 'r' to read the input again and run another
pass: the Moved column shows how far each circle travelled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == pipeline.StdinPath {
				return errs.New(errs.ErrCodeInvalidInput, "inspect reads the terminal; pass a directory or file")
			}
			c.applyConfig(cmd, &opts)
			return c.runInspect(cmd.Context(), in.source(args[0]), opts, noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "do not load or save positions")
	registerCanvasFlags(cmd, &opts)
	in.register(cmd)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, src pipeline.Source, opts pipeline.Options, noCache bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	eng, found := runner.NewEngine(ctx, opts)
	c.Logger.Debug("restored positions", "project", opts.Project, "found", found)

	pass := func() (diagram.Layout, error) {
		return c.inspectPass(ctx, runner, eng, src, opts)
	}
	l, err := pass()
	if err != nil {
		return err
	}

	model := newInspectModel(l, pass)
	_, err = tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

// inspectPass reads src and runs one engine pass, saving the new positions.
func (c *CLI) inspectPass(ctx context.Context, runner *pipeline.Runner, eng *engine.Engine, src pipeline.Source, opts pipeline.Options) (diagram.Layout, error) {
	root, err := pipeline.LoadTree(ctx, src)
	if err != nil {
		return diagram.Layout{}, fmt.Errorf("load tree %s: %w", src, err)
	}
	l, _, err := runner.LayoutWith(ctx, eng, root, opts)
	if err != nil {
		return diagram.Layout{}, err
	}
	if _, err := runner.SaveSnapshot(ctx, opts.Project, eng.Cache()); err != nil {
		c.Logger.Warn("could not save position snapshot", "project", opts.Project, "error", err)
	}
	return l, nil
}

// =============================================================================
// InspectModel
// =============================================================================

// layoutMsg carries the result of another layout pass.
type layoutMsg struct {
	layout diagram.Layout
	err    error
}

// circleRow is one table row: a circle and how far it moved since the
// previous pass.
type circleRow struct {
	diagram.Circle
	moved float64
	added bool
}

// InspectModel is the bubbletea model for browsing circles.
type InspectModel struct {
	Layout diagram.Layout
	Rows   []circleRow
	Cursor int
	Offset int
	Height int
	Sort   int
	Passes int
	Err    error

	relayout func() (diagram.Layout, error)
	busy     bool
}

// newInspectModel creates a model showing l. relayout may be nil.
func newInspectModel(l diagram.Layout, relayout func() (diagram.Layout, error)) InspectModel {
	m := InspectModel{Height: 15, Passes: 1, relayout: relayout}
	m.setLayout(l, nil)
	return m
}

// setLayout replaces the shown circles, measuring moves against prev.
func (m *InspectModel) setLayout(l diagram.Layout, prev map[string]diagram.Circle) {
	m.Layout = l
	m.Rows = make([]circleRow, 0, len(l.Circles))
	for _, ci := range l.Circles {
		row := circleRow{Circle: ci}
		if prev != nil {
			if old, ok := prev[ci.Path]; ok {
				row.moved = math.Hypot(ci.X-old.X, ci.Y-old.Y)
			} else {
				row.added = true
			}
		}
		m.Rows = append(m.Rows, row)
	}
	m.sortRows()
	if m.Cursor >= len(m.Rows) {
		m.Cursor = max(len(m.Rows)-1, 0)
	}
	m.clampOffset()
}

func (m *InspectModel) sortRows() {
	less := func(a, b circleRow) bool { return a.Path < b.Path }
	switch m.Sort {
	case sortByRadius:
		less = func(a, b circleRow) bool {
			if a.R != b.R {
				return a.R > b.R
			}
			return a.Path < b.Path
		}
	case sortByMoved:
		less = func(a, b circleRow) bool {
			if a.moved != b.moved {
				return a.moved > b.moved
			}
			return a.Path < b.Path
		}
	}
	sort.SliceStable(m.Rows, func(i, j int) bool { return less(m.Rows[i], m.Rows[j]) })
}

func (m *InspectModel) clampOffset() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
			}
		case "pgup":
			m.Cursor = max(m.Cursor-m.Height, 0)
		case "pgdown":
			m.Cursor = max(min(m.Cursor+m.Height, len(m.Rows)-1), 0)
		case "s":
			m.Sort = (m.Sort + 1) % sortModes
			m.sortRows()
		case "r":
			if m.relayout == nil || m.busy {
				return m, nil
			}
			m.busy = true
			relayout := m.relayout
			return m, func() tea.Msg {
				l, err := relayout()
				return layoutMsg{layout: l, err: err}
			}
		}
		m.clampOffset()
	case layoutMsg:
		m.busy = false
		m.Err = msg.err
		if msg.err == nil {
			prev := make(map[string]diagram.Circle, len(m.Layout.Circles))
			for _, ci := range m.Layout.Circles {
				prev[ci.Path] = ci
			}
			m.Passes++
			m.setLayout(msg.layout, prev)
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		m.clampOffset()
	}
	return m, nil
}

func (m InspectModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Circles"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d circles · %.0f×%.0f · pass %d · sorted by %s",
		len(m.Rows), m.Layout.Width, m.Layout.Height, m.Passes, sortNames[m.Sort])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  s sort  r re-run layout  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Rows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			swatch(r.Color),
			r.Path,
			fmt.Sprintf("%d", r.Depth),
			fmt.Sprintf("%.1f", r.R),
			formatPoint(r.X, r.Y),
			formatMoved(r, m.Passes),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "", "Path", "Depth", "Radius", "Position", "Moved").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			r := m.Rows[idx]
			base := lipgloss.NewStyle()
			if col >= 3 {
				base = base.Foreground(colorGray)
			}
			if r.Container {
				base = base.Foreground(colorDim)
			}
			if idx == m.Cursor {
				return base.Foreground(colorCyan).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	status := fmt.Sprintf("  [%d/%d]", min(m.Cursor+1, len(m.Rows)), len(m.Rows))
	if m.busy {
		status += "  laying out..."
	}
	b.WriteString(listDimStyle.Render(status))
	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render("  " + errs.UserMessage(m.Err)))
	}

	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func swatch(color string) string {
	if color == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
}

func formatPoint(x, y float64) string {
	return fmt.Sprintf("%.0f, %.0f", x, y)
}

// formatMoved describes a row's displacement. The first pass has nothing to
// compare against.
func formatMoved(r circleRow, passes int) string {
	switch {
	case passes < 2:
		return "—"
	case r.added:
		return "new"
	case r.moved < 0.05:
		return "0"
	default:
		return fmt.Sprintf("%.1f", r.moved)
	}
}
