package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/optsim/internal/experiment"
	"github.com/san-kum/optsim/internal/params"
	"github.com/san-kum/optsim/internal/viz"
)

var fieldLabels = map[string]string{
	"spot":        "S0",
	"strike":      "K",
	"maturity":    "T",
	"volatility":  "sigma",
	"rate":        "r",
	"simulations": "N",
	"steps":       "M",
}

// Options seed the panel. Edits only take effect on apply.
type Options struct {
	Params  params.Set
	Seed    int64
	Workers int
	Samples int
	Theme   string
}

type resultMsg struct {
	result *experiment.Result
	err    error
}

type model struct {
	edit    params.Set
	cursor  int
	seed    int64
	workers int
	samples int

	result  *experiment.Result
	err     error
	running bool

	theme  viz.Theme
	styles viz.Styles

	width  int
	height int
}

func newModel(opts Options) model {
	theme := viz.GetTheme(opts.Theme)
	return model{
		edit:    opts.Params,
		seed:    opts.Seed,
		workers: opts.Workers,
		samples: opts.Samples,
		theme:   theme,
		styles:  theme.Styles(),
		width:   100,
		height:  32,
	}
}

// Run starts the interactive panel and blocks until the user quits.
func Run(opts Options) error {
	_, err := tea.NewProgram(newModel(opts), tea.WithAltScreen()).Run()
	return err
}

func (m model) Init() tea.Cmd { return m.apply() }

func (m model) apply() tea.Cmd {
	cfg := experiment.Config{
		Params:      m.edit,
		Seed:        m.seed,
		Workers:     m.workers,
		SampleLimit: m.samples,
	}
	return func() tea.Msg {
		res, err := experiment.Price(context.Background(), cfg)
		return resultMsg{result: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case resultMsg:
		m.running = false
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
		}
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(params.Fields)-1 {
			m.cursor++
		}
	case "left", "h":
		m.nudge(-1)
	case "right", "l":
		m.nudge(1)
	case "enter", "a":
		if m.running {
			return m, nil
		}
		m.running = true
		return m, m.apply()
	case "r":
		if m.running {
			return m, nil
		}
		m.seed++
		m.running = true
		return m, m.apply()
	case "t":
		m.theme = m.theme.Next()
		m.styles = m.theme.Styles()
	}
	return m, nil
}

func (m *model) nudge(dir float64) {
	name := params.Fields[m.cursor]
	rng := params.Bounds[name]
	cur, _ := m.edit.Get(name)
	if next, ok := m.edit.With(name, rng.Clamp(cur+dir*rng.Step)); ok {
		m.edit = next
	}
}

// dirty reports whether the edited parameters differ from the last applied run.
func (m model) dirty() bool {
	return m.result == nil || m.result.Params != m.edit
}

func (m model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString("\n  " + s.Title.Render("o p t s i m") + "  " + s.Muted.Render("monte carlo vs black-scholes") + "\n\n")

	left := m.viewParams()
	right := m.viewResults()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, "  ", s.Panel.Render(left), "  ", s.Panel.Render(right)))
	b.WriteString("\n")

	if m.result != nil {
		plotWidth := max(m.width-14, 30)
		caption := fmt.Sprintf("%d sample paths, strike %.2f", len(m.result.Samples), m.result.Params.Strike)
		if plot := viz.PlotPaths(m.result.Samples, m.result.Params.Strike, 0, plotWidth, 12, caption); plot != "" {
			b.WriteString("\n" + plot + "\n")
		}
	}

	b.WriteString("\n  " + s.Muted.Render("↑↓ select  ←→ adjust  enter apply  r reseed  t theme  q quit") + "\n")
	return b.String()
}

func (m model) viewParams() string {
	s := m.styles
	var b strings.Builder

	title := "parameters"
	if m.dirty() {
		title += s.Warn.Render(" *")
	}
	b.WriteString(s.Title.Render(title) + "\n\n")

	for i, name := range params.Fields {
		v, _ := m.edit.Get(name)
		val := fmt.Sprintf("%10.4g", v)
		label := fmt.Sprintf("%-6s", fieldLabels[name])
		if i == m.cursor {
			b.WriteString(s.Selected.Render("▸ "+label) + s.Value.Render(val) + "\n")
		} else {
			b.WriteString("  " + s.Label.Render(label) + s.Label.Render(val) + "\n")
		}
	}

	b.WriteString("\n" + s.Label.Render(fmt.Sprintf("seed %d", m.seed)))
	return b.String()
}

func (m model) viewResults() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("results") + "\n\n")

	if m.running {
		b.WriteString(s.Muted.Render("pricing...") + "\n")
	}
	if m.err != nil {
		b.WriteString(s.Bad.Render(m.err.Error()) + "\n")
	}
	if m.result == nil {
		return b.String()
	}

	r := m.result
	row := func(label string, call, put string) {
		b.WriteString(s.Label.Render(fmt.Sprintf("%-14s", label)) + s.Value.Render(fmt.Sprintf("%12s %12s", call, put)) + "\n")
	}
	b.WriteString(s.Label.Render(fmt.Sprintf("%-14s%12s %12s", "", "call", "put")) + "\n")
	row("monte carlo", fmt.Sprintf("%.4f", r.MonteCarlo.Call), fmt.Sprintf("%.4f", r.MonteCarlo.Put))
	row("std error", fmt.Sprintf("%.4f", r.MonteCarlo.CallStdErr), fmt.Sprintf("%.4f", r.MonteCarlo.PutStdErr))
	row("black-scholes", fmt.Sprintf("%.4f", r.BlackScholes.Call), fmt.Sprintf("%.4f", r.BlackScholes.Put))
	row("abs error", fmt.Sprintf("%.4f", r.Errors.CallAbs), fmt.Sprintf("%.4f", r.Errors.PutAbs))
	row("pct error", r.Errors.CallPct.String(), r.Errors.PutPct.String())

	b.WriteString("\n")
	if r.Errors.CallPct.Applicable {
		b.WriteString(s.Label.Render("call ") + viz.ErrorBar(r.Errors.CallPct.Value, 20) + "\n")
	}
	if r.Errors.PutPct.Applicable {
		b.WriteString(s.Label.Render("put  ") + viz.ErrorBar(r.Errors.PutPct.Value, 20) + "\n")
	}
	b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("%d paths in %s", r.TotalPaths, r.Elapsed.Round(time.Microsecond))))
	return b.String()
}
