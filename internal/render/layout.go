package render

import (
	"strconv"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

type alignment int

const (
	alignLeft alignment = iota
	alignCenter
	alignRight
)

// column describes one board column. Widths are weights, scaled
// proportionally to whatever canvas width is configured.
type column struct {
	title  string
	weight float64
	align  alignment
	value  func(standings.Row) string
}

var allColumns = []column{
	{title: "P", weight: 0.07, align: alignCenter, value: func(r standings.Row) string { return strconv.Itoa(r.Position) }},
	{title: "No", weight: 0.08, align: alignCenter, value: func(r standings.Row) string { return r.CarNumber }},
	{title: "Driver", weight: 0.41, align: alignLeft, value: func(r standings.Row) string { return r.Driver }},
	{title: "Class", weight: 0.16, align: alignLeft, value: func(r standings.Row) string { return r.Class }},
	{title: "Pts", weight: 0.14, align: alignRight, value: func(r standings.Row) string { return r.Points }},
	{title: "Diff", weight: 0.14, align: alignRight, value: func(r standings.Row) string { return r.Diff }},
}

// activeColumns drops columns that are empty for every row (a league without
// classes should not render a blank Class column). Position and Driver always
// stay.
func activeColumns(rows []standings.Row) []column {
	var active []column
	for _, col := range allColumns {
		if col.title == "P" || col.title == "Driver" {
			active = append(active, col)
			continue
		}
		for _, row := range rows {
			if col.value(row) != "" {
				active = append(active, col)
				break
			}
		}
	}
	return active
}

// columnWidths scales the active columns' weights to the usable width.
func columnWidths(cols []column, usable float64) []float64 {
	total := 0.0
	for _, col := range cols {
		total += col.weight
	}
	widths := make([]float64, len(cols))
	for i, col := range cols {
		widths[i] = usable * col.weight / total
	}
	return widths
}
