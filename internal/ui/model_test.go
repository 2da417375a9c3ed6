package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/connectivity"
	"github.com/signalnine/deskmate/internal/protocol"
	"github.com/signalnine/deskmate/internal/session"
)

type fakeQuerier struct {
	resp *protocol.Response
	err  error
}

func (f *fakeQuerier) Query(ctx context.Context, command string) (*protocol.Response, error) {
	return f.resp, f.err
}

type fakeChecker struct{ err error }

func (f *fakeChecker) Health(ctx context.Context) error { return f.err }

func newTestModel(q session.Querier, checker *fakeChecker) (Model, *session.Engine) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := session.NewEngine(q, session.Options{Logger: logger})
	monitor := connectivity.NewMonitor(checker, connectivity.NewState(), 0, logger)
	m := NewModel(context.Background(), engine, monitor, "http://127.0.0.1:8000")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), engine
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func TestModelSubmitRoundTrip(t *testing.T) {
	q := &fakeQuerier{resp: &protocol.Response{
		Success: true,
		Steps: []protocol.Step{{
			Action: "get_time",
			Result: protocol.Outcome{Success: true, Output: []byte(`{"output": "12:30"}`)},
		}},
	}}
	m, engine := newTestModel(q, &fakeChecker{})

	m = typeText(m, "what time is it")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("submit returned no command")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	next, _ = m.Update(cmd())
	m = next.(Model)

	if engine.Len() != 2 {
		t.Fatalf("log length = %d, want 2", engine.Len())
	}
	view := m.View()
	if !strings.Contains(view, "what time is it") || !strings.Contains(view, "Current Time") {
		t.Errorf("view missing conversation:\n%s", view)
	}
}

func TestModelEmptySubmitIgnored(t *testing.T) {
	m, engine := newTestModel(&fakeQuerier{}, &fakeChecker{})

	m = typeText(m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if cmd != nil {
		t.Error("blank submit produced a command")
	}
	if engine.Len() != 0 {
		t.Errorf("log length = %d, want 0", engine.Len())
	}
}

func TestModelConnectivityErrorShowsBannerAndProbes(t *testing.T) {
	q := &fakeQuerier{err: &agent.Error{Kind: agent.KindConnectivity, Message: "No response from server. Check if backend is running."}}
	checker := &fakeChecker{err: errors.New("refused")}
	m, _ := newTestModel(q, checker)

	m = typeText(m, "hello")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	next, probe := m.Update(cmd())
	m = next.(Model)
	if !strings.Contains(m.View(), "Cannot reach DeskMate backend") {
		t.Errorf("banner not shown:\n%s", m.View())
	}
	if probe == nil {
		t.Fatal("no probe scheduled after connectivity error")
	}

	// Backend comes back; the probe clears the banner
	checker.err = nil
	next, _ = m.Update(probedMsg(m.monitor.Probe(context.Background())))
	m = next.(Model)
	if strings.Contains(m.View(), "Cannot reach DeskMate backend") {
		t.Error("banner still shown after successful probe")
	}
}

func TestModelClear(t *testing.T) {
	q := &fakeQuerier{resp: &protocol.Response{Success: true}}
	m, engine := newTestModel(q, &fakeChecker{})

	if _, err := engine.Ask(context.Background(), "one"); err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = next.(Model)

	if engine.Len() != 0 {
		t.Errorf("log length = %d, want 0", engine.Len())
	}
	if !strings.Contains(m.View(), "Welcome to DeskMate") {
		t.Errorf("view not reset:\n%s", m.View())
	}
}
