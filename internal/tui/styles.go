package tui

import "github.com/charmbracelet/lipgloss"

// Color constants.
const (
	primaryColor   = "#7C3AED" // Purple
	secondaryColor = "#10B981" // Green
	warningColor   = "#F59E0B" // Amber
	errorColor     = "#EF4444" // Red
	dimColor       = "#6B7280" // Gray
)

// Style variables for consistent TUI rendering.
var (
	// BoxStyle provides a rounded border box with primary color.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(1, 2)

	// CardStyle frames a single statistic.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(dimColor)).
			Padding(0, 2).
			Width(22)

	// TitleStyle renders titles in primary color with bold.
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	// LabelStyle renders section labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Bold(true)

	// DimStyle renders dim/muted text.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	// SuccessStyle renders success messages in green.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	// ErrorStyle renders error messages in red.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor))

	// WarningStyle renders warning messages in amber.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	// ButtonStyle renders the submit button.
	ButtonStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(primaryColor)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2)

	// DisabledButtonStyle renders the submit button while it cannot be used.
	DisabledButtonStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#374151")).
				Foreground(lipgloss.Color("#9CA3AF")).
				Padding(0, 2)

	// ActiveTabStyle renders the active tab.
	ActiveTabStyle = lipgloss.NewStyle().
			Background(lipgloss.Color(primaryColor)).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2)

	// InactiveTabStyle renders inactive tabs.
	InactiveTabStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#374151")).
				Foreground(lipgloss.Color("#9CA3AF")).
				Padding(0, 2)

	// ProgressFullStyle renders filled progress indicators.
	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(secondaryColor))

	// ProgressEmptyStyle renders empty progress indicators.
	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(dimColor))
)

// Tool status icons (pre-rendered strings).
var (
	// ToolDone indicates a tool that finished successfully.
	ToolDone = SuccessStyle.Render("✓")

	// ToolRunning indicates a tool still executing.
	ToolRunning = WarningStyle.Render("▸")

	// ToolFailed indicates a tool that reported failure.
	ToolFailed = ErrorStyle.Render("✗")
)
