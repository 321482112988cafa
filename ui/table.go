package ui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/lmikael/conntop/engine"
	"github.com/lmikael/conntop/model"
)

// pad trims or right-pads a cell to the column width.
func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		if width > 1 {
			return string(r[:width-1]) + "…"
		}
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

func renderHeader(cols []engine.Column, sortKey string, desc bool) string {
	cells := make([]string, 0, len(cols))
	for _, c := range cols {
		title := c.Title
		if c.Key == sortKey {
			if desc {
				title += "▼"
			} else {
				title += "▲"
			}
		}
		cells = append(cells, pad(title, c.Width))
	}
	return headerStyle.Render(strings.Join(cells, "  "))
}

func renderRow(e *model.Entry, cols []engine.Column) string {
	cells := make([]string, 0, len(cols))
	for _, c := range cols {
		cells = append(cells, pad(c.Render(e), c.Width))
	}
	return strings.Join(cells, "  ")
}

// renderTable renders the projected entries with the configured column
// subset, highlighting the selected row. rows is the number of visible data
// lines; scroll is the index of the first visible entry.
func renderTable(entries []model.Entry, cols []engine.Column, selected, scroll, rows int) string {
	var sb strings.Builder
	end := scroll + rows
	if end > len(entries) {
		end = len(entries)
	}
	for i := scroll; i < end; i++ {
		row := renderRow(&entries[i], cols)
		if i == selected {
			sb.WriteString(selectedStyle.Render(row))
		} else {
			sb.WriteString(row)
		}
		sb.WriteString("\n")
	}
	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("  (no connections)"))
		sb.WriteString("\n")
	}
	return sb.String()
}

func fmtTotals(up, down uint64) string {
	return fmt.Sprintf("↑ %s  ↓ %s", humanize.Bytes(up), humanize.Bytes(down))
}
