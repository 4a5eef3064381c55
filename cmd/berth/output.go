package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	colorHeader = lipgloss.AdaptiveColor{Light: "#1e66f5", Dark: "#89b4fa"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6c6f85", Dark: "#6c7086"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#40a02b", Dark: "#a6e3a1"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#d20f39", Dark: "#f38ba8"}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeader).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(colorMuted)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(colorOK)
	failStyle   = lipgloss.NewStyle().Foreground(colorFail)
)

// maskedValue replaces secret values on display.
const maskedValue = "********"

// emptyCell marks a missing value in a table.
const emptyCell = "-"

// renderTable writes rows as a bordered table.
func renderTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// printField writes one "Label: value" line, skipping empty values.
func printField(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
}

func orEmpty(values []string) string {
	if len(values) == 0 {
		return emptyCell
	}
	return strings.Join(values, ", ")
}

func intsToString(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return orEmpty(parts)
}

// formatSetting renders a configuration value for display.
func formatSetting(v any, secret bool) string {
	switch {
	case v == nil:
		return "null"
	case secret:
		return maskedValue
	default:
		return fmt.Sprint(v)
	}
}

func status(ok bool, text string) string {
	if ok {
		return okStyle.Render(text)
	}
	return failStyle.Render(text)
}
