// Package views provides TUI view components for the cowork application.
package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kuse-dev/cowork/internal/agent"
	"github.com/kuse-dev/cowork/internal/tui"
	"github.com/kuse-dev/cowork/internal/tui/commands"
)

const (
	focusMessage = iota
	focusProject
)

// setupMessage is shown in place of the agent view until credentials exist.
const setupMessage = "Configure your API key to use the agent"

// AgentDeps holds what the agent view needs to run sessions.
type AgentDeps struct {
	Controller *agent.Controller
	// Configured reports whether credentials are present.
	Configured bool
	MaxTurns   int
	// Tools is the list advertised on the empty screen.
	Tools []string
}

// ============================================================================
// AgentModel
// ============================================================================

// AgentModel is the view model for the agent screen.
type AgentModel struct {
	ctrl       *agent.Controller
	configured bool
	available  bool
	maxTurns   int
	tools      []string
	keys       tui.KeyMap

	project  textinput.Model
	message  textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    int

	// stream is the session currently being listened to.
	stream *agent.Stream
	// notice reports a rejected submit that left the transcript untouched.
	notice string

	width  int
	height int
}

// NewAgentModel creates a new AgentModel. Host availability is checked once.
func NewAgentModel(deps AgentDeps, width, height int) AgentModel {
	ti := textinput.New()
	ti.Placeholder = "/path/to/project"
	ti.Prompt = "Project Path (optional): "
	ti.CharLimit = 1024

	ta := textarea.New()
	ta.Placeholder = "Ask the agent to help you... (e.g., 'Read the README.md file')"
	ta.CharLimit = 10000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline = tui.DefaultKeyMap.NewLine
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = tui.TitleStyle

	m := AgentModel{
		ctrl:       deps.Controller,
		configured: deps.Configured,
		available:  deps.Controller.Available(),
		maxTurns:   deps.MaxTurns,
		tools:      deps.Tools,
		keys:       tui.DefaultKeyMap,
		project:    ti,
		message:    ta,
		viewport:   viewport.New(20, 5),
		spinner:    sp,
	}
	m.resize(width, height)
	m.refresh()
	return m
}

// Init returns the initial command for the agent view.
func (m AgentModel) Init() tea.Cmd {
	return textarea.Blink
}

// Running reports whether a session is in flight.
func (m AgentModel) Running() bool {
	return m.ctrl.Running()
}

// Update handles messages for the agent view.
func (m AgentModel) Update(msg tea.Msg) (AgentModel, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.configured || !m.available {
			return m, nil
		}
		running := m.ctrl.Running()

		switch {
		case key.Matches(msg, m.keys.ScrollUp, m.keys.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keys.Focus):
			m.toggleFocus()
			return m, nil

		case key.Matches(msg, m.keys.Reset):
			// A closed stream with no terminal event leaves the session running.
			if !running || m.stream == nil {
				m.ctrl.Reset()
				m.notice = ""
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Submit):
			if m.focus == focusProject {
				m.toggleFocus()
				return m, nil
			}
			return m.submit()
		}

		if running {
			return m, nil
		}

	case tui.AgentStartedMsg:
		m.stream = msg.Stream
		m.notice = ""
		m.refresh()
		return m, tea.Batch(commands.ListenEventsCmd(msg.Stream), m.spinner.Tick)

	case tui.AgentStartErrorMsg:
		switch {
		case errors.Is(msg.Err, agent.ErrSessionRunning),
			errors.Is(msg.Err, agent.ErrEmptyMessage),
			errors.Is(msg.Err, agent.ErrNotConfigured):
			m.notice = msg.Err.Error()
		default:
			// The controller already recorded the failure in its state.
			m.notice = ""
		}
		m.refresh()
		return m, nil

	case tui.AgentEventMsg:
		// Events of superseded streams are dropped by Handle but still drained.
		msg.Stream.Handle(msg.Event)
		if msg.Stream == m.stream {
			m.refresh()
		}
		return m, commands.ListenEventsCmd(msg.Stream)

	case tui.AgentStreamClosedMsg:
		if msg.Stream == m.stream {
			m.stream = nil
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.Running() {
			m.spinner, cmd = m.spinner.Update(msg)
			m.refresh()
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil
	}

	if m.focus == focusProject {
		m.project, cmd = m.project.Update(msg)
	} else {
		m.message, cmd = m.message.Update(msg)
	}
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit starts a session with the textarea content.
func (m AgentModel) submit() (AgentModel, tea.Cmd) {
	if m.ctrl.Running() {
		return m, nil
	}
	content := strings.TrimSpace(m.message.Value())
	if content == "" {
		return m, nil
	}

	m.message.Reset()
	sc := agent.SubmitContext{
		ProjectPath: strings.TrimSpace(m.project.Value()),
		MaxTurns:    m.maxTurns,
	}
	return m, commands.StartSessionCmd(m.ctrl, content, sc)
}

func (m *AgentModel) toggleFocus() {
	if m.focus == focusMessage {
		m.focus = focusProject
		m.message.Blur()
		m.project.Focus()
		return
	}
	m.focus = focusMessage
	m.project.Blur()
	m.message.Focus()
}

func (m *AgentModel) resize(width, height int) {
	m.width = width
	m.height = height

	// Reserve space for: header (2), inputs (6), button (2), footer (2), box (4)
	vpHeight := height - 18
	if vpHeight < 5 {
		vpHeight = 5
	}
	vpWidth := width - 8
	if vpWidth < 20 {
		vpWidth = 20
	}

	m.viewport.Width = vpWidth
	m.viewport.Height = vpHeight
	m.message.SetWidth(vpWidth)
	m.project.Width = vpWidth - len(m.project.Prompt) - 1
}

// refresh re-renders the transcript from the controller snapshot.
func (m *AgentModel) refresh() {
	state := m.ctrl.Snapshot()
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderTranscript(state, m.tools, m.viewport.Width))
	if atBottom || state.Running {
		m.viewport.GotoBottom()
	}
}

// View renders the agent view.
func (m AgentModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("Agent Mode"))
	b.WriteString("\n\n")

	switch {
	case !m.configured:
		b.WriteString(setupMessage)
		b.WriteString("\n\n")
		b.WriteString(tui.DimStyle.Render("Run 'cowork config init' and set provider.api_key, or export COWORK_API_KEY."))
		return m.box(b.String())
	case !m.available:
		b.WriteString(agent.HostUnavailableMessage)
		b.WriteString("\n\n")
		b.WriteString(tui.DimStyle.Render("The agent runtime command was not found on this host."))
		return m.box(b.String())
	}

	state := m.ctrl.Snapshot()

	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")

	if state.Running {
		b.WriteString(tui.DimStyle.Render(m.project.View()))
		b.WriteString("\n")
		b.WriteString(tui.DimStyle.Render(m.message.View()))
	} else {
		b.WriteString(m.project.View())
		b.WriteString("\n")
		b.WriteString(m.message.View())
	}
	b.WriteString("\n\n")

	label := SubmitLabel(state)
	if state.Running {
		b.WriteString(m.spinner.View() + " " + tui.DisabledButtonStyle.Render(label))
	} else if strings.TrimSpace(m.message.Value()) == "" {
		b.WriteString(tui.DisabledButtonStyle.Render(label))
	} else {
		b.WriteString(tui.ButtonStyle.Render(label))
	}
	if m.notice != "" {
		b.WriteString("  ")
		b.WriteString(tui.WarningStyle.Render(m.notice))
	}
	b.WriteString("\n\n")

	b.WriteString(tui.DimStyle.Render("Enter: Run · Shift+Enter: New line · Shift+Tab: Switch field · Ctrl+L: Clear · PgUp/PgDn: Scroll"))

	return m.box(b.String())
}

func (m AgentModel) box(content string) string {
	return tui.BoxStyle.Width(m.width - 4).Render(content)
}

// SubmitLabel is the submit button label for state.
func SubmitLabel(state agent.SessionState) string {
	if state.Running {
		return fmt.Sprintf("Running (Turn %d)...", state.Turn)
	}
	return "Run Agent"
}

// renderTranscript formats the session for the viewport.
func renderTranscript(state agent.SessionState, tools []string, width int) string {
	if state.Empty() && !state.Running && state.Err == nil && state.TotalTurns == nil {
		return renderIntro(tools, width)
	}

	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder

	if state.Message != "" {
		b.WriteString(tui.LabelStyle.Render("You"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(state.Message))
		b.WriteString("\n\n")
	}

	if len(state.Plan) > 0 {
		b.WriteString(tui.LabelStyle.Render("Plan"))
		b.WriteString("\n")
		for _, s := range state.Plan {
			b.WriteString(renderStep(s))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if state.Text != "" {
		b.WriteString(tui.TitleStyle.Render("Claude"))
		b.WriteString("\n")
		b.WriteString(wrap.Render(state.Text))
		b.WriteString("\n\n")
	}

	if len(state.Tools) > 0 {
		b.WriteString(tui.LabelStyle.Render("Tool Executions"))
		b.WriteString("\n")
		for _, t := range state.Tools {
			b.WriteString(renderTool(t, width))
			b.WriteString("\n")
		}
	}

	if state.Running && state.Empty() {
		b.WriteString(tui.DimStyle.Render("Waiting for the agent..."))
		b.WriteString("\n")
	}

	if state.TotalTurns != nil {
		b.WriteString(tui.SuccessStyle.Render(agent.CompletionLabel(*state.TotalTurns)))
		b.WriteString("\n")
	}
	if state.Err != nil {
		b.WriteString(tui.ErrorStyle.Render(wrap.Render(*state.Err)))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderIntro(tools []string, width int) string {
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	b.WriteString(wrap.Render("The agent can execute tools to help you with tasks like reading files, running commands, and searching code."))
	if len(tools) > 0 {
		b.WriteString("\n\n")
		b.WriteString(tui.DimStyle.Render(wrap.Render("Available tools: " + strings.Join(tools, ", "))))
	}
	return b.String()
}

func renderTool(t agent.ToolExecution, width int) string {
	var icon string
	var status lipgloss.Style
	switch t.Status {
	case agent.ToolCompleted:
		icon, status = tui.ToolDone, tui.SuccessStyle
	case agent.ToolError:
		icon, status = tui.ToolFailed, tui.ErrorStyle
	default:
		icon, status = tui.ToolRunning, tui.WarningStyle
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s  %s\n", icon, lipgloss.NewStyle().Bold(true).Render(t.Tool), status.Render(agent.StatusLabel(t.Status))))

	indent := lipgloss.NewStyle().PaddingLeft(2).Width(width)
	if input := agent.FormatInput(t.InputKeys, t.Input); input != "" {
		b.WriteString(indent.Render(tui.DimStyle.Render("Input: ") + input))
		b.WriteString("\n")
	}
	if t.Result != nil && *t.Result != "" {
		b.WriteString(indent.Render(tui.DimStyle.Render("Result:")))
		b.WriteString("\n")
		b.WriteString(indent.Render(agent.TruncateResult(*t.Result)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStep(s agent.Step) string {
	switch s.Status {
	case agent.StepDone:
		return fmt.Sprintf("%s %d. %s", tui.ToolDone, s.Step, s.Description)
	case agent.StepRunning:
		return fmt.Sprintf("%s %d. %s", tui.ToolRunning, s.Step, s.Description)
	default:
		return tui.DimStyle.Render(fmt.Sprintf("○ %d. %s", s.Step, s.Description))
	}
}
