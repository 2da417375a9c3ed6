// Package ui is the interactive terminal chat for DeskMate.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalnine/deskmate/internal/agent"
	"github.com/signalnine/deskmate/internal/connectivity"
	"github.com/signalnine/deskmate/internal/session"
)

const (
	// sidebarMinWidth is the terminal width from which the history sidebar shows
	sidebarMinWidth = 100
	sidebarWidth    = 28
	// chrome is the rows taken by banner, input and status line
	chrome = 6
)

// Messages
type (
	resultMsg struct{ entry session.Entry }
	// StatusMsg is a connectivity transition
	StatusMsg connectivity.Status
	probedMsg connectivity.Status
)

// Model is the chat screen
type Model struct {
	ctx     context.Context
	engine  *session.Engine
	monitor *connectivity.Monitor
	baseURL string

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	styles   *Styles
	renderer *Renderer

	status     connectivity.Status
	statusLine string
	width      int
	height     int
	ready      bool
}

// NewModel creates the chat screen. ctx bounds every query and probe the
// screen starts.
func NewModel(ctx context.Context, engine *session.Engine, monitor *connectivity.Monitor, baseURL string) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Ask DeskMate to open, create, read or explain something"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	styles := DefaultStyles()
	return Model{
		ctx:        ctx,
		engine:     engine,
		monitor:    monitor,
		baseURL:    baseURL,
		input:      input,
		timeline:   timeline,
		spinner:    sp,
		styles:     styles,
		renderer:   NewRenderer(styles, 80),
		status:     monitor.State().Status(),
		statusLine: "enter send · ctrl+l clear · esc quit",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.probe())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlL:
			m.engine.Clear()
			m.statusLine = "conversation cleared"
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}

	case resultMsg:
		m.refresh()
		if msg.entry.Kind == session.KindError && msg.entry.ErrorKind == agent.KindConnectivity {
			m.status = connectivity.Unreachable
			cmds = append(cmds, m.probe())
		} else {
			m.status = m.monitor.State().Status()
		}

	case StatusMsg:
		m.status = connectivity.Status(msg)

	case probedMsg:
		m.status = connectivity.Status(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if _, ok := msg.(tea.MouseMsg); ok {
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	done, err := m.engine.Submit(m.ctx, m.input.Value())
	switch {
	case errors.Is(err, session.ErrEmptyCommand):
		return m, nil
	case errors.Is(err, session.ErrBusy):
		m.statusLine = "still working on the previous command"
		return m, nil
	case err != nil:
		m.statusLine = err.Error()
		return m, nil
	}

	m.input.Reset()
	m.statusLine = "enter send · ctrl+l clear · esc quit"
	m.refresh()
	return m, wait(done)
}

// wait delivers the submission's result entry
func wait(done <-chan session.Entry) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{entry: <-done}
	}
}

func (m Model) probe() tea.Cmd {
	return func() tea.Msg {
		return probedMsg(m.monitor.Probe(m.ctx))
	}
}

func (m *Model) resize() {
	w := m.width
	if m.width >= sidebarMinWidth {
		w -= sidebarWidth + 1
	}
	m.timeline.Width = w
	m.timeline.Height = max(m.height-chrome, 1)
	m.input.Width = max(w-4, 10)
	m.renderer = NewRenderer(m.styles, w-2)
}

// refresh re-renders the log into the viewport and scrolls to the end
func (m *Model) refresh() {
	entries := m.engine.Log()
	if len(entries) == 0 {
		m.timeline.SetContent(m.styles.Muted.Render("Welcome to DeskMate. Type a command to get started."))
		return
	}
	m.timeline.SetContent(m.renderer.Entries(entries))
	m.timeline.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sections []string
	if m.status == connectivity.Unreachable {
		banner := fmt.Sprintf("Cannot reach DeskMate backend at %s", m.baseURL)
		sections = append(sections, m.styles.Banner.Width(m.width).Render(banner))
	}

	body := m.timeline.View()
	if m.width >= sidebarMinWidth {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar(), body)
	}
	sections = append(sections, body)
	sections = append(sections, m.styles.InputFrame.Render(m.input.View()))

	status := m.statusLine
	if m.engine.Busy() {
		status = m.spinner.View() + " processing..."
	}
	sections = append(sections, m.styles.StatusBar.Render(status))

	return strings.Join(sections, "\n")
}

func (m Model) sidebar() string {
	lines := []string{m.styles.CardTitle.Render("History")}
	items := m.engine.Commands()
	// newest first, as many as fit
	for i := len(items) - 1; i >= 0 && len(lines) < m.timeline.Height; i-- {
		cmd := []rune(items[i].Command)
		if len(cmd) > sidebarWidth-4 {
			cmd = append(cmd[:sidebarWidth-7], []rune("...")...)
		}
		lines = append(lines, m.styles.Timestamp.Render(items[i].Timestamp.Format("15:04"))+" "+string(cmd))
	}
	return m.styles.Sidebar.Width(sidebarWidth).Height(m.timeline.Height).Render(strings.Join(lines, "\n"))
}
