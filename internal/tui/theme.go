package tui

import "github.com/charmbracelet/lipgloss"

// Theme is one of the two fixed palettes.
type Theme struct {
	Background lipgloss.Color
	Text       lipgloss.Color
	Card       lipgloss.Color
	Passage    lipgloss.Color
}

var (
	darkTheme = Theme{
		Background: lipgloss.Color("#0f172a"),
		Text:       lipgloss.Color("#f1f5f9"),
		Card:       lipgloss.Color("#1e293b"),
		Passage:    lipgloss.Color("#334155"),
	}
	lightTheme = Theme{
		Background: lipgloss.Color("#f8fafc"),
		Text:       lipgloss.Color("#0f172a"),
		Card:       lipgloss.Color("#ffffff"),
		Passage:    lipgloss.Color("#e2e8f0"),
	}

	latencyBarColor    = lipgloss.Color("#6366f1")
	comparisonBarColor = lipgloss.Color("#22c55e")
	errorColor         = lipgloss.Color("#ef4444")
	noticeColor        = lipgloss.Color("10")
	mutedColor         = lipgloss.Color("8")
)

func themeFor(dark bool) Theme {
	if dark {
		return darkTheme
	}
	return lightTheme
}

type styles struct {
	app     lipgloss.Style
	card    lipgloss.Style
	title   lipgloss.Style
	passage lipgloss.Style
	muted   lipgloss.Style
	notice  lipgloss.Style
	err     lipgloss.Style
	latency lipgloss.Style
	compare lipgloss.Style
}

func (t Theme) styles() styles {
	base := lipgloss.NewStyle().Foreground(t.Text)
	return styles{
		app:     base.Copy().Background(t.Background).Padding(0, 1),
		card:    base.Copy().Background(t.Card).Border(lipgloss.RoundedBorder()).BorderBackground(t.Background).Padding(0, 1),
		title:   base.Copy().Bold(true),
		passage: base.Copy().Background(t.Passage).Padding(0, 1),
		muted:   lipgloss.NewStyle().Foreground(mutedColor),
		notice:  lipgloss.NewStyle().Foreground(noticeColor),
		err:     lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		latency: lipgloss.NewStyle().Foreground(latencyBarColor),
		compare: lipgloss.NewStyle().Foreground(comparisonBarColor),
	}
}
