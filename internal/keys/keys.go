package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the board.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Up    key.Binding
	Down  key.Binding

	// Drag
	Pick   key.Binding
	Drop   key.Binding
	Cancel key.Binding

	// Column focus
	Focus key.Binding

	// Task actions
	New       key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Checklist key.Binding

	// Checklist actions
	Toggle key.Binding
	Add    key.Binding

	// Filter and sort
	Search       key.Binding
	CyclePrio    key.Binding
	FilterColumn key.Binding
	CycleSort    key.Binding
	ClearFilters key.Binding

	// Error banner
	Retry   key.Binding
	Dismiss key.Binding

	Help key.Binding
	Back key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "coluna anterior"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "próxima coluna"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "acima"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "abaixo"),
		),
		Pick: key.NewBinding(
			key.WithKeys("m", " "),
			key.WithHelp("m/espaço", "pegar tarefa"),
		),
		Drop: key.NewBinding(
			key.WithKeys("enter", "m", " "),
			key.WithHelp("enter", "soltar tarefa"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancelar"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "focar coluna"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "nova tarefa"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "editar"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "excluir"),
		),
		Checklist: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "checklist"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("espaço", "marcar item"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "adicionar item"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "buscar"),
		),
		CyclePrio: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "filtrar prioridade"),
		),
		FilterColumn: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "filtrar pela coluna"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("s", "tab"),
			key.WithHelp("s", "ordenar"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "limpar filtros"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recarregar"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x", "esc"),
			key.WithHelp("x", "fechar aviso"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "ajuda"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "voltar"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "sair"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Left, k.Right, k.Pick, k.New,
		k.Checklist, k.Help, k.Quit,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down, k.Focus},
		{k.Pick, k.Drop, k.Cancel},
		{k.New, k.Edit, k.Delete, k.Checklist, k.Toggle, k.Add},
		{k.Search, k.CyclePrio, k.FilterColumn, k.CycleSort, k.ClearFilters},
		{k.Retry, k.Dismiss, k.Help, k.Quit},
	}
}
