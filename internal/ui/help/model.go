package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/keys"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/theme"
)

// Model is the help overlay: keybindings plus a legend of the board
// columns.
type Model struct {
	keys    *keys.KeyMap
	help    help.Model
	columns []model.Column
	width   int
	height  int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, columns []model.Column, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:    keys,
		help:    h,
		columns: columns,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Atalhos do quadro"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Colunas"),
		m.legend(),
		"",
		theme.HelpStyle.Render("Para mover: pegue a tarefa, escolha a coluna com h/l e solte com enter."),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func (m Model) legend() string {
	parts := make([]string, 0, len(m.columns))
	for i, c := range m.columns {
		label := fmt.Sprintf("%d %s", i+1, c.Name)
		parts = append(parts, theme.ColumnTitleStyle(c.Accent).Render(label))
	}
	return strings.Join(parts, "  ")
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
