package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/linesync/internal/formatter"
)

var _ list.Item = rowItem{}

// rowItem wraps one [formatter.Table] row to implement [list.Item].
// The first cell is the title; the remaining cells form the description.
type rowItem struct {
	cells []string
}

func (i rowItem) FilterValue() string { return strings.Join(i.cells, " ") }

func (i rowItem) Title() string {
	if len(i.cells) == 0 {
		return ""
	}
	return i.cells[0]
}

func (i rowItem) Description() string {
	if len(i.cells) < 2 {
		return ""
	}
	parts := make([]string, 0, len(i.cells)-1)
	for _, c := range i.cells[1:] {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " • ")
}

func tableItems(t formatter.Table) []list.Item {
	items := make([]list.Item, len(t.Rows))
	for i, row := range t.Rows {
		items[i] = rowItem{cells: row}
	}
	return items
}
