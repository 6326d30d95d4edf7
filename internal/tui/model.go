package tui

// Tab represents the active tab in the TUI.
type Tab int

const (
	TabAgent Tab = iota
	TabStatistics
)

// TabNames are the tab bar labels, indexed by Tab.
var TabNames = []string{"Agent", "Statistics"}

// Next returns the tab after t, wrapping around.
func (t Tab) Next() Tab {
	return (t + 1) % Tab(len(TabNames))
}

// String returns the tab label.
func (t Tab) String() string {
	if int(t) < 0 || int(t) >= len(TabNames) {
		return "Unknown"
	}
	return TabNames[t]
}
