package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/weekly-planner/internal/theme"
)

// Lines taken by the header and the status bar.
const (
	headerLines = 1
	statusLines = 1
)

// Layout manages the board screen dimensions.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the lines left between the header and the status
// bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-headerLines-statusLines, 0)
}

// Screen is one frame of the terminal UI.
type Screen struct {
	Title  string
	Status string
	Banner string
	Body   string
	Hints  string
}

// Render composes s into the full terminal view. A banner is drawn on
// top of the body and the body is cut so the status bar stays on screen.
func (l Layout) Render(s Screen) string {
	body := s.Body
	room := l.ContentHeight()
	if s.Banner != "" {
		banner := theme.BannerStyle.Width(l.Width).Render(s.Banner)
		room -= lipgloss.Height(banner)
		body = banner + "\n" + clip(body, max(room, 0))
	} else {
		body = clip(body, room)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		l.bar(theme.HeaderStyle, s.Title, s.Status),
		body,
		l.bar(theme.StatusBarStyle, s.Hints, ""),
	)
}

// bar renders a full-width line with left and right aligned text.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	leftR := style.Render(left)
	rightR := ""
	if right != "" {
		rightR = style.Render(right)
	}
	gap := max(l.Width-lipgloss.Width(leftR)-lipgloss.Width(rightR), 0)
	fill := lipgloss.NewStyle().Background(style.GetBackground()).Render(strings.Repeat(" ", gap))
	return leftR + fill + rightR
}

func clip(s string, lines int) string {
	if lines <= 0 {
		return ""
	}
	parts := strings.Split(s, "\n")
	if len(parts) <= lines {
		return s
	}
	return strings.Join(parts[:lines], "\n")
}
