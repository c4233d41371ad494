package model

import "fmt"

// Layout selects which fixed set of columns the board shows.
type Layout string

const (
	LayoutStages Layout = "stages"
	LayoutDays   Layout = "days"
)

// Column is the display configuration of one board column.
type Column struct {
	Key    ColumnKey `json:"key"`
	Name   string    `json:"name"`
	Accent string    `json:"accent"`
}

// StageColumns is the workflow-stage layout.
var StageColumns = []Column{
	{Key: StageTodo, Name: "A Fazer", Accent: "#5B9BD5"},
	{Key: StageInProgress, Name: "Em Andamento", Accent: "#FFD93D"},
	{Key: StageCompleted, Name: "Concluído", Accent: "#6BCB77"},
}

// DayColumns is the day-of-week layout.
var DayColumns = []Column{
	{Key: DayMonday, Name: "Segunda-feira", Accent: "#CC5DE8"},
	{Key: DayTuesday, Name: "Terça-feira", Accent: "#5B9BD5"},
	{Key: DayWednesday, Name: "Quarta-feira", Accent: "#6BCB77"},
	{Key: DayThursday, Name: "Quinta-feira", Accent: "#FFD93D"},
	{Key: DayFriday, Name: "Sexta-feira", Accent: "#FFA94D"},
	{Key: DaySaturday, Name: "Sábado", Accent: "#FF6B6B"},
	{Key: DaySunday, Name: "Domingo", Accent: "#868E96"},
}

// ColumnsFor returns the columns of the given layout.
func ColumnsFor(layout Layout) ([]Column, error) {
	switch layout {
	case LayoutStages, "":
		return StageColumns, nil
	case LayoutDays:
		return DayColumns, nil
	default:
		return nil, fmt.Errorf("unknown board layout %q", layout)
	}
}

// HasColumn reports whether key is one of columns.
func HasColumn(columns []Column, key ColumnKey) bool {
	for _, c := range columns {
		if c.Key == key {
			return true
		}
	}
	return false
}
