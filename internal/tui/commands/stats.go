package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kuse-dev/cowork/internal/store"
	"github.com/kuse-dev/cowork/internal/tui"
)

// StatsSource provides aggregate counters. *store.Store satisfies it.
type StatsSource interface {
	Statistics() (store.Stats, error)
}

// LoadStatsCmd fetches statistics from src.
func LoadStatsCmd(src StatsSource) tea.Cmd {
	return func() tea.Msg {
		if src == nil {
			return tui.StatsErrorMsg{Err: fmt.Errorf("statistics store not available")}
		}

		stats, err := src.Statistics()
		if err != nil {
			return tui.StatsErrorMsg{Err: err}
		}
		return tui.StatsLoadedMsg{Stats: stats}
	}
}
