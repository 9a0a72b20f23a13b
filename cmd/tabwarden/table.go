package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// tabTable renders fixed-column rows with a per-row style. Column widths are
// sized to the widest cell.
type tabTable struct {
	headers []string
	rows    [][]string
	styles  []lipgloss.Style
}

func newTabTable(headers ...string) *tabTable {
	return &tabTable{headers: headers}
}

func (t *tabTable) addRow(style lipgloss.Style, cells ...string) {
	t.rows = append(t.rows, cells)
	t.styles = append(t.styles, style)
}

func (t *tabTable) render(header, divider lipgloss.Style) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	// Account for the cell padding baked into the styles.
	total := 0
	for i := range widths {
		widths[i] += 2
		total += widths[i]
	}

	var sb strings.Builder
	for i, h := range t.headers {
		sb.WriteString(header.Width(widths[i]).Render(h))
	}
	sb.WriteString("\n")
	sb.WriteString(divider.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for r, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				sb.WriteString(t.styles[r].Width(widths[i]).Render(cell))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
