// Package tui provides the live agent monitor for aide.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aide-sh/aide/internal/orchestrator"
	"github.com/aide-sh/aide/pkg/models"
)

const maxEventLines = 12

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// eventMsg wraps one orchestrator event for the bubbletea loop.
type eventMsg orchestrator.Event

// eventsClosedMsg signals the orchestrator stopped emitting.
type eventsClosedMsg struct{}

// tickMsg drives the periodic agent list refresh.
type tickMsg time.Time

// AgentLister is the read-only orchestrator surface the monitor needs.
type AgentLister interface {
	ListAgents() []*models.Agent
}

// Monitor is the bubbletea model for the live agent view.
type Monitor struct {
	orch    AgentLister
	events  <-chan orchestrator.Event
	spinner spinner.Model

	agents []*models.Agent
	log    []string
	width  int
	closed bool
}

// NewMonitor creates a monitor over the orchestrator's event stream. A nil
// events channel is allowed; the view then refreshes on the tick alone,
// which is how the standalone monitor command watches the audit database.
func NewMonitor(orch AgentLister, events <-chan orchestrator.Event) *Monitor {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return &Monitor{
		orch:    orch,
		events:  events,
		spinner: sp,
	}
}

// Run starts the monitor and blocks until the user quits.
func (m *Monitor) Run() error {
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

func (m *Monitor) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m *Monitor) Init() tea.Cmd {
	m.agents = m.orch.ListAgents()
	if m.events == nil {
		return tea.Batch(m.spinner.Tick, tick())
	}
	return tea.Batch(m.spinner.Tick, m.waitForEvent(), tick())
}

// Update implements tea.Model.
func (m *Monitor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case eventMsg:
		m.appendLog(orchestrator.Event(msg))
		m.agents = m.orch.ListAgents()
		return m, m.waitForEvent()

	case eventsClosedMsg:
		m.closed = true
		return m, nil

	case tickMsg:
		m.agents = m.orch.ListAgents()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Monitor) appendLog(ev orchestrator.Event) {
	line := fmt.Sprintf("%s  %-16s %s",
		ev.Timestamp.Format("15:04:05"), ev.Type, describeEvent(ev))
	m.log = append(m.log, line)
	if len(m.log) > maxEventLines {
		m.log = m.log[len(m.log)-maxEventLines:]
	}
}

func describeEvent(ev orchestrator.Event) string {
	switch ev.Type {
	case orchestrator.EventToolExecuted, orchestrator.EventApprovalNeeded:
		return fmt.Sprintf("%s: %s", ev.AgentName, ev.Tool)
	case orchestrator.EventStateChanged:
		return fmt.Sprintf("%s -> %s", ev.AgentName, ev.State)
	default:
		return ev.AgentName
	}
}

// View implements tea.Model.
func (m *Monitor) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("aide agents"))
	if m.closed {
		b.WriteString(dimStyle.Render("  (orchestrator stopped)"))
	}
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-24s %-30s %s", "AGENT", "STATE", "LAST OUTPUT")))
	b.WriteString("\n")

	if len(m.agents) == 0 {
		b.WriteString(dimStyle.Render("  no agents\n"))
	}
	for _, ag := range m.agents {
		marker := "  "
		if ag.State == models.AgentStateWorking {
			marker = m.spinner.View()
		}
		b.WriteString(fmt.Sprintf("%s%-24s %-30s %s\n",
			marker, truncate(ag.Name, 24), renderState(ag.State), truncate(oneLine(ag.LastText), 50)))
	}

	if len(m.log) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("  EVENTS"))
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(dimStyle.Render("  " + line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  q: quit"))
	b.WriteString("\n")
	return b.String()
}

func renderState(s models.AgentState) string {
	text := fmt.Sprintf("%-30s", s)
	switch s {
	case models.AgentStateCompleted:
		return okStyle.Render(text)
	case models.AgentStateFailed, models.AgentStateTerminated:
		return errStyle.Render(text)
	case models.AgentStateWaitingToolApproval, models.AgentStateWaitingUserFeedback,
		models.AgentStateWaitingCompletionReview:
		return warnStyle.Render(text)
	default:
		return text
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
