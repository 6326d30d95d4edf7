// Package app provides the main TUI application that wires all views together.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kuse-dev/cowork/internal/tui"
	"github.com/kuse-dev/cowork/internal/tui/commands"
	"github.com/kuse-dev/cowork/internal/tui/views"
)

// Deps holds everything the application needs.
type Deps struct {
	Agent views.AgentDeps
	Stats commands.StatsSource
}

// App is the main TUI application that wires all views together.
type App struct {
	activeTab    tui.Tab
	width        int
	height       int
	ctrlCPending bool

	agentView views.AgentModel
	statsView views.StatisticsModel
}

// New creates a new App.
func New(deps Deps) *App {
	const width, height = 80, 24 // updated on WindowSizeMsg
	return &App{
		activeTab: tui.TabAgent,
		width:     width,
		height:    height,
		agentView: views.NewAgentModel(deps.Agent, width, height),
		statsView: views.NewStatisticsModel(deps.Stats, width, height),
	}
}

// Init returns the initial command for the TUI.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.agentView.Init(), a.statsView.Init())
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Leave room for the tab bar.
		inner := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 2}
		var agentCmd, statsCmd tea.Cmd
		a.agentView, agentCmd = a.agentView.Update(inner)
		a.statsView, statsCmd = a.statsView.Update(inner)
		return a, tea.Batch(agentCmd, statsCmd)

	case tea.KeyMsg:
		switch msg.String() {
		case tui.KeyCtrlC:
			if a.ctrlCPending {
				return a, tea.Quit
			}
			a.ctrlCPending = true
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})

		case tui.KeyTab:
			return a, a.cycleTab()
		}

		if a.activeTab == tui.TabStatistics {
			a.statsView, cmd = a.statsView.Update(msg)
		} else {
			a.agentView, cmd = a.agentView.Update(msg)
		}
		return a, cmd

	case tui.CtrlCResetMsg:
		a.ctrlCPending = false
		return a, nil

	case tui.StatsLoadedMsg, tui.StatsErrorMsg:
		a.statsView, cmd = a.statsView.Update(msg)
		return a, cmd

	case tui.AgentStreamClosedMsg:
		// A finished session changes the counters.
		a.agentView, cmd = a.agentView.Update(msg)
		var statsCmd tea.Cmd
		a.statsView, statsCmd = a.statsView.Reload()
		return a, tea.Batch(cmd, statsCmd)
	}

	// Session traffic always goes to the agent view so streams keep draining
	// while another tab is shown.
	a.agentView, cmd = a.agentView.Update(msg)
	return a, cmd
}

// View renders the current application state.
func (a *App) View() string {
	var content string
	switch a.activeTab {
	case tui.TabStatistics:
		content = a.statsView.View()
	default:
		content = a.agentView.View()
	}

	content = lipgloss.JoinVertical(lipgloss.Center, content, a.renderTabBar())
	if a.ctrlCPending {
		content = lipgloss.JoinVertical(lipgloss.Center, content, tui.WarningStyle.Render("Press Ctrl+C again to exit"))
	}
	return content
}

// ActiveTab returns the tab currently shown.
func (a *App) ActiveTab() tui.Tab {
	return a.activeTab
}

func (a *App) cycleTab() tea.Cmd {
	a.activeTab = a.activeTab.Next()
	if a.activeTab == tui.TabStatistics {
		var cmd tea.Cmd
		a.statsView, cmd = a.statsView.Reload()
		return cmd
	}
	return nil
}

// renderTabBar renders the tab bar with the active tab highlighted.
func (a *App) renderTabBar() string {
	var rendered []string
	for i, name := range tui.TabNames {
		if tui.Tab(i) == a.activeTab {
			rendered = append(rendered, tui.ActiveTabStyle.Render(name))
		} else {
			rendered = append(rendered, tui.InactiveTabStyle.Render(name))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	return lipgloss.NewStyle().
		Width(a.width).
		Align(lipgloss.Center).
		Render(tabBar)
}
