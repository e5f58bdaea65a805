package tui

import "github.com/charmbracelet/lipgloss"

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleSubtle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleCorrect = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleMissed  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	styleReview  = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))

	styleFront = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(1, 2)
	styleBack = styleFront.BorderForeground(lipgloss.Color("10"))

	styleBarDone = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleBarTodo = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const (
	barWidth     = 30
	minCardWidth = 24
	maxCardWidth = 72
)
