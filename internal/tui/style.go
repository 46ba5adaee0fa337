package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette (256-color).
var (
	clrBrand  = lipgloss.Color("39")  // blue
	clrMuted  = lipgloss.Color("245") // gray
	clrSubtle = lipgloss.Color("242") // darker gray
	clrRed    = lipgloss.Color("203") // red/error
	clrYellow = lipgloss.Color("220")
)

// Reusable styles.
var (
	brandStyle   = lipgloss.NewStyle().Foreground(clrBrand).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(clrMuted)
	subtleStyle  = lipgloss.NewStyle().Foreground(clrSubtle)
	redStyle     = lipgloss.NewStyle().Foreground(clrRed)
	keywordStyle = lipgloss.NewStyle().Foreground(clrBrand)
)

// prompt renders the input prompt with color.
func prompt() string {
	return brandStyle.Render("you>") + " "
}

// errLine formats a user-facing error message.
func errLine(msg string) string {
	return redStyle.Render("error: " + msg)
}

func errLinef(format string, a ...interface{}) string {
	return errLine(fmt.Sprintf(format, a...))
}

// dim renders dimmed/muted text.
func dim(text string) string {
	return subtleStyle.Render(text)
}
