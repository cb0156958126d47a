package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/optsim/internal/params"
)

func testOptions() Options {
	p := params.Default()
	p.Simulations = 200
	p.Steps = 10
	return Options{Params: p, Seed: 1, Workers: 1, Samples: 5}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return mm, cmd
}

// settle runs a pending command and feeds its message back.
func settle(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = send(t, m, cmd())
	return m
}

func TestInitialApply(t *testing.T) {
	m := newModel(testOptions())
	m = settle(t, m, m.Init())

	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
	if m.result == nil || m.result.TotalPaths != 200 {
		t.Fatalf("expected a 200 path result, got %+v", m.result)
	}
	if len(m.result.Samples) != 5 {
		t.Errorf("expected 5 samples, got %d", len(m.result.Samples))
	}
	if m.dirty() {
		t.Error("fresh result should not be dirty")
	}
}

func TestEditsWaitForApply(t *testing.T) {
	m := newModel(testOptions())
	m = settle(t, m, m.Init())
	before := m.result

	m, _ = send(t, m, key("down"))
	m, cmd := send(t, m, key("right"))
	if cmd != nil {
		t.Error("nudging should not start a run")
	}
	if m.edit.Strike != 106 {
		t.Errorf("expected strike 106, got %v", m.edit.Strike)
	}
	if m.result != before || !m.dirty() {
		t.Error("edit should leave the displayed result untouched")
	}

	m, cmd = send(t, m, key("a"))
	if !m.running {
		t.Error("expected running state after apply")
	}
	m = settle(t, m, cmd)
	if m.result.Params.Strike != 106 || m.dirty() {
		t.Errorf("apply did not take the edit: %v", m.result.Params)
	}
}

func TestNudgeClamps(t *testing.T) {
	m := newModel(testOptions())
	m.cursor = 3
	for i := 0; i < 100; i++ {
		m, _ = send(t, m, key("left"))
	}
	if m.edit.Volatility != params.Bounds["volatility"].Min {
		t.Errorf("expected volatility clamped to %v, got %v", params.Bounds["volatility"].Min, m.edit.Volatility)
	}
}

func TestCursorBounds(t *testing.T) {
	m := newModel(testOptions())
	m, _ = send(t, m, key("up"))
	if m.cursor != 0 {
		t.Errorf("cursor moved above first field: %d", m.cursor)
	}
	for range params.Fields {
		m, _ = send(t, m, key("down"))
	}
	if m.cursor != len(params.Fields)-1 {
		t.Errorf("cursor moved past last field: %d", m.cursor)
	}
}

func TestReseed(t *testing.T) {
	m := newModel(testOptions())
	m = settle(t, m, m.Init())
	first := m.result.MonteCarlo

	m, cmd := send(t, m, key("r"))
	m = settle(t, m, cmd)
	if m.seed != 2 || m.result.Seed != 2 {
		t.Errorf("expected seed 2, got %d/%d", m.seed, m.result.Seed)
	}
	if m.result.MonteCarlo == first {
		t.Error("expected a different estimate after reseeding")
	}
}

func TestInvalidApplyKeepsLastResult(t *testing.T) {
	opts := testOptions()
	m := newModel(opts)
	m = settle(t, m, m.Init())
	good := m.result

	m.edit.Spot = -1
	m, cmd := send(t, m, key("enter"))
	m = settle(t, m, cmd)
	if m.err == nil {
		t.Fatal("expected validation error")
	}
	if m.result != good {
		t.Error("failed apply replaced the last good result")
	}
	if !strings.Contains(m.View(), "must be positive") {
		t.Error("error not shown in view")
	}
}

func TestQuit(t *testing.T) {
	m := newModel(testOptions())
	_, cmd := send(t, m, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestView(t *testing.T) {
	m := newModel(testOptions())
	m = settle(t, m, m.Init())
	view := m.View()
	for _, want := range []string{"parameters", "results", "monte carlo", "black-scholes"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
