package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kuse-dev/cowork/internal/store"
	"github.com/kuse-dev/cowork/internal/tui"
	"github.com/kuse-dev/cowork/internal/tui/commands"
)

// barWidth is the width of the success rate bar in cells.
const barWidth = 40

// StatisticsModel is the view model for the statistics screen.
type StatisticsModel struct {
	src     commands.StatsSource
	stats   store.Stats
	loading bool
	err     error
	keys    tui.KeyMap
	width   int
	height  int
}

// NewStatisticsModel creates a StatisticsModel reading from src.
func NewStatisticsModel(src commands.StatsSource, width, height int) StatisticsModel {
	return StatisticsModel{
		src:     src,
		loading: true,
		keys:    tui.DefaultKeyMap,
		width:   width,
		height:  height,
	}
}

// Init loads the statistics.
func (m StatisticsModel) Init() tea.Cmd {
	return commands.LoadStatsCmd(m.src)
}

// Reload marks the view as loading and fetches fresh statistics.
func (m StatisticsModel) Reload() (StatisticsModel, tea.Cmd) {
	m.loading = true
	return m, commands.LoadStatsCmd(m.src)
}

// Update handles messages for the statistics view.
func (m StatisticsModel) Update(msg tea.Msg) (StatisticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tui.StatsLoadedMsg:
		m.stats = msg.Stats
		m.loading = false
		m.err = nil
	case tui.StatsErrorMsg:
		m.loading = false
		m.err = msg.Err
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Refresh) {
			return m.Reload()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// View renders the statistics view.
func (m StatisticsModel) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("Dashboard Statistics"))
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render("Overview of your activity in cowork"))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString("Loading statistics...")
	case m.err != nil:
		b.WriteString(tui.ErrorStyle.Render("Failed to load statistics: " + m.err.Error()))
	default:
		cards := []string{
			card("Total Tasks", m.stats.TotalTasks),
			card("Completed", m.stats.CompletedTasks),
			card("Conversations", m.stats.TotalConversations),
			card("Total Messages", m.stats.TotalMessages),
		}
		if m.width >= 4*26 {
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
		} else {
			b.WriteString(lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1]),
				lipgloss.JoinHorizontal(lipgloss.Top, cards[2], cards[3]),
			))
		}
		b.WriteString("\n\n")

		rate := m.stats.SuccessRate()
		b.WriteString(tui.LabelStyle.Render("Task Success Rate"))
		b.WriteString("\n")
		b.WriteString(renderBar(rate, barWidth))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%d%% Success Rate", rate))
	}

	b.WriteString("\n\n")
	b.WriteString(tui.DimStyle.Render("r: Refresh · Tab: Switch tabs"))

	return tui.BoxStyle.Width(m.width - 4).Render(b.String())
}

func card(label string, value int) string {
	return tui.CardStyle.Render(tui.DimStyle.Render(label) + "\n" + tui.TitleStyle.Render(fmt.Sprintf("%d", value)))
}

// renderBar draws a horizontal bar filled to percent.
func renderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return tui.ProgressFullStyle.Render(strings.Repeat("█", filled)) +
		tui.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
