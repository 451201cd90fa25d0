// Package ui provides lipgloss styles for CLI command output.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Title renders a section heading.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Check renders a labeled pass/fail line with an optional detail suffix.
func Check(label string, ok bool, detail string) string {
	mark := okStyle.Render("✓")
	if !ok {
		mark = failStyle.Render("✗")
	}

	line := fmt.Sprintf("%s %s", mark, label)
	if detail != "" {
		line += " " + dimStyle.Render(detail)
	}

	return line
}

// Dim renders secondary text.
func Dim(s string) string {
	return dimStyle.Render(s)
}
