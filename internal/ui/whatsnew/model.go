package whatsnew

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/release"
	"github.com/nhle/weekly-planner/internal/theme"
)

// CloseMsg signals the parent to hide the popup.
type CloseMsg struct{}

// Model is the "what's new" popup.
type Model struct {
	notice   release.Notice
	viewport viewport.Model
	width    int
	height   int
}

// New creates an empty popup.
func New(width, height int) Model {
	vp := viewport.New(width-8, height-10)
	return Model{viewport: vp, width: width, height: height}
}

// SetNotice shows the release of n. An HTML body that fails to parse is
// shown as is.
func (m *Model) SetNotice(n release.Notice) {
	m.notice = n
	body, err := release.PlainText(n.Release.ContentHTML)
	if err != nil {
		body = n.Release.ContentHTML
	}
	m.viewport.SetContent(lipgloss.NewStyle().Width(m.viewport.Width).Render(body))
	m.viewport.GotoTop()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update closes the popup on enter, esc or q and scrolls otherwise.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter", "esc", "q":
			return m, func() tea.Msg { return CloseMsg{} }
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the popup.
func (m Model) View() string {
	rel := m.notice.Release

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	tagStyle := lipgloss.NewStyle().Foreground(theme.ColorMagenta).Bold(true)

	header := titleStyle.Render("Novidades") + "  " + tagStyle.Render(rel.VersionTag)
	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		titleStyle.Render(rel.Title),
		"",
		m.viewport.View(),
		"",
		theme.HelpStyle.Render(fmt.Sprintf("enter fechar | exibição %d", m.notice.Count)),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the popup dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-8, 10)
	m.viewport.Height = max(height-10, 3)
}
