package search

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/theme"
)

// KeywordMsg is emitted when the user confirms a search keyword. An empty
// Keyword clears the keyword filter.
type KeywordMsg struct {
	Keyword string
}

// CancelMsg is emitted when the user leaves the search bar unchanged.
type CancelMsg struct{}

// Model is the keyword search bar.
type Model struct {
	input textinput.Model
	width int
}

// New creates a new search bar model.
func New(width int) Model {
	ti := textinput.New()
	ti.Placeholder = "parte do título..."
	ti.Prompt = "/ "
	ti.CharLimit = 120
	ti.Width = width - 6

	return Model{
		input: ti,
		width: width,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the search bar.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			kw := strings.TrimSpace(m.input.Value())
			m.input.Blur()
			return m, func() tea.Msg {
				return KeywordMsg{Keyword: kw}
			}
		case "esc":
			m.input.Blur()
			return m, func() tea.Msg {
				return CancelMsg{}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the search bar.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Buscar tarefas"),
		m.input.View(),
		theme.HelpStyle.Render("enter aplicar | esc cancelar | vazio limpa a busca"),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the search bar width.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.input.Width = width - 6
}

// Open focuses the input, prefilled with the active keyword.
func (m *Model) Open(keyword string) tea.Cmd {
	m.input.SetValue(keyword)
	m.input.CursorEnd()
	return m.input.Focus()
}
