package views

import (
	"errors"
	"strings"
	"testing"

	"github.com/kuse-dev/cowork/internal/store"
	"github.com/kuse-dev/cowork/internal/tui"
)

func TestStatisticsView(t *testing.T) {
	m := NewStatisticsModel(nil, 120, 40)
	if !strings.Contains(m.View(), "Loading statistics") {
		t.Errorf("initial view should be loading:\n%s", m.View())
	}

	m, _ = m.Update(tui.StatsLoadedMsg{Stats: store.Stats{
		TotalTasks: 3, CompletedTasks: 2, TotalConversations: 5, TotalMessages: 42,
	}})
	out := m.View()
	for _, want := range []string{"Total Tasks", "Completed", "Conversations", "Total Messages", "42", "67% Success Rate"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}

	m, _ = m.Update(tui.StatsErrorMsg{Err: errors.New("db locked")})
	if !strings.Contains(m.View(), "db locked") {
		t.Errorf("view missing error:\n%s", m.View())
	}
}

func TestStatisticsReload(t *testing.T) {
	m := NewStatisticsModel(nil, 120, 40)
	m, _ = m.Update(tui.StatsLoadedMsg{})
	m, cmd := m.Reload()
	if cmd == nil {
		t.Fatal("Reload should return a command")
	}
	if !m.loading {
		t.Error("Reload should mark the view loading")
	}
	if _, ok := cmd().(tui.StatsErrorMsg); !ok {
		t.Error("nil source should report an error")
	}
}

func TestRenderBar(t *testing.T) {
	tests := []struct {
		percent    int
		wantFilled int
	}{
		{0, 0},
		{50, 5},
		{100, 10},
		{150, 10},
		{-5, 0},
	}
	for _, tt := range tests {
		bar := renderBar(tt.percent, 10)
		if got := strings.Count(bar, "█"); got != tt.wantFilled {
			t.Errorf("renderBar(%d) filled = %d, want %d", tt.percent, got, tt.wantFilled)
		}
		if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
			t.Errorf("renderBar(%d) width = %d, want 10", tt.percent, got)
		}
	}
}
