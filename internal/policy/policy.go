// Package policy holds the pure filter and sort rules applied to board
// tasks before they are grouped into columns.
package policy

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nhle/weekly-planner/internal/model"
)

// SortType selects the single active task ordering.
type SortType string

const (
	SortNone      SortType = ""
	SortAlphaAsc  SortType = "alpha_asc"
	SortAlphaDesc SortType = "alpha_desc"
	SortPriority  SortType = "priority"
	SortComments  SortType = "comments"
	SortNewest    SortType = "newest"
)

// SortOption pairs a SortType with its menu label.
type SortOption struct {
	Type  SortType
	Label string
}

// SortOptions lists the selectable orderings in menu order.
var SortOptions = []SortOption{
	{SortNone, "Ordem de criação"},
	{SortAlphaAsc, "Título (A-Z)"},
	{SortAlphaDesc, "Título (Z-A)"},
	{SortPriority, "Prioridade"},
	{SortComments, "Mais comentadas"},
	{SortNewest, "Mais recentes"},
}

// Label returns the menu label of s.
func (s SortType) Label() string {
	for _, o := range SortOptions {
		if o.Type == s {
			return o.Label
		}
	}
	return string(s)
}

// ParseSortType validates a configured sort name. "none" and "" both
// select the default creation order.
func ParseSortType(s string) (SortType, error) {
	if s == "none" {
		return SortNone, nil
	}
	for _, o := range SortOptions {
		if string(o.Type) == s {
			return o.Type, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort %q", s)
}

// Locale is the language used for alphabetical ordering.
var Locale = language.BrazilianPortuguese

// Filter is a conjunction of predicates. Zero-valued fields match all.
type Filter struct {
	Keyword    string
	Priorities []model.Priority
	Columns    []model.ColumnKey
}

// Active reports whether f restricts anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Keyword) != "" || len(f.Priorities) > 0 || len(f.Columns) > 0
}

// Matcher returns a predicate for f. The keyword is folded once.
func (f Filter) Matcher() func(model.Task) bool {
	fold := cases.Fold()
	keyword := fold.String(strings.TrimSpace(f.Keyword))

	return func(t model.Task) bool {
		if keyword != "" && !strings.Contains(fold.String(t.Title), keyword) {
			return false
		}
		if len(f.Priorities) > 0 && !slices.Contains(f.Priorities, t.Priority) {
			return false
		}
		if len(f.Columns) > 0 && !slices.Contains(f.Columns, t.ColumnKey) {
			return false
		}
		return true
	}
}

// Match reports whether t passes f.
func (f Filter) Match(t model.Task) bool {
	return f.Matcher()(t)
}

// Less returns the strict ordering for s. Equal keys compare false both
// ways so stable sorts keep the input order.
func Less(s SortType) func(a, b model.Task) bool {
	switch s {
	case SortAlphaAsc, SortAlphaDesc:
		coll := collate.New(Locale, collate.IgnoreCase)
		if s == SortAlphaDesc {
			return func(a, b model.Task) bool { return coll.CompareString(a.Title, b.Title) > 0 }
		}
		return func(a, b model.Task) bool { return coll.CompareString(a.Title, b.Title) < 0 }
	case SortPriority:
		return func(a, b model.Task) bool {
			ra, okA := a.Priority.Rank()
			rb, okB := b.Priority.Rank()
			switch {
			case okA && okB:
				return ra < rb
			case okA:
				return true
			default:
				return false
			}
		}
	case SortComments:
		return func(a, b model.Task) bool { return a.CommentsCount > b.CommentsCount }
	case SortNewest:
		return func(a, b model.Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return func(a, b model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

// Sort returns a stably sorted copy of tasks.
func Sort(tasks []model.Task, s SortType) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	less := Less(s)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Apply filters tasks with f and orders the survivors by s.
func Apply(tasks []model.Task, f Filter, s SortType) []model.Task {
	match := f.Matcher()
	kept := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if match(t) {
			kept = append(kept, t)
		}
	}
	less := Less(s)
	sort.SliceStable(kept, func(i, j int) bool { return less(kept[i], kept[j]) })
	return kept
}
