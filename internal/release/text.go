package release

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText renders release HTML as terminal text: block elements start
// new lines, list items get a bullet, and runs of whitespace collapse.
// Script and style content is dropped.
func PlainText(content string) (string, error) {
	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var w textWriter
	w.walk(root)
	return w.String(), nil
}

type textWriter struct {
	lines []string
	cur   strings.Builder
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		case atom.Br:
			w.newline()
			return
		case atom.Li:
			w.newline()
			w.cur.WriteString("• ")
		default:
			if isBlock(n.DataAtom) {
				w.newline()
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type == html.ElementNode && isBlock(n.DataAtom) {
		w.newline()
		if n.DataAtom == atom.P || isHeading(n.DataAtom) {
			w.blank()
		}
	}
}

func (w *textWriter) text(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if w.cur.Len() > 0 && len(s) > 0 {
			w.space()
		}
		return
	}
	if startsWithSpace(s) {
		w.space()
	}
	for i, f := range fields {
		if i > 0 {
			w.cur.WriteByte(' ')
		}
		w.cur.WriteString(f)
	}
	if endsWithSpace(s) {
		w.space()
	}
}

func (w *textWriter) space() {
	line := w.cur.String()
	if line == "" || strings.HasSuffix(line, " ") {
		return
	}
	w.cur.WriteByte(' ')
}

func (w *textWriter) newline() {
	line := strings.TrimSpace(w.cur.String())
	w.cur.Reset()
	if line == "" || line == "•" {
		return
	}
	w.lines = append(w.lines, line)
}

func (w *textWriter) blank() {
	if n := len(w.lines); n > 0 && w.lines[n-1] != "" {
		w.lines = append(w.lines, "")
	}
}

func (w *textWriter) String() string {
	w.newline()
	lines := w.lines
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Ul, atom.Ol, atom.Li, atom.Section, atom.Article,
		atom.Blockquote, atom.Pre, atom.Table, atom.Tr:
		return true
	}
	return isHeading(a)
}

func isHeading(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func startsWithSpace(s string) bool {
	return s != "" && strings.IndexAny(s[:1], " \t\n\r\f") == 0
}

func endsWithSpace(s string) bool {
	return s != "" && strings.IndexAny(s[len(s)-1:], " \t\n\r\f") == 0
}
