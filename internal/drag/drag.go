// Package drag drives the pick-up, hover and drop lifecycle of moving a
// task between board columns. It holds no task data: a drop to another
// column becomes an optimistic move on the board store.
package drag

import (
	"github.com/nhle/weekly-planner/internal/board"
	"github.com/nhle/weekly-planner/internal/model"
)

// Mover starts optimistic column moves.
type Mover interface {
	BeginMove(taskID string, to model.ColumnKey) (*board.Mutation, error)
}

// Phase is the coordinator's position in the drag lifecycle.
type Phase int

const (
	Idle Phase = iota
	Picked
	Hovering
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Picked:
		return "picked"
	case Hovering:
		return "hovering"
	default:
		return "unknown"
	}
}

// State describes the drag in progress, if any.
type State struct {
	Phase  Phase
	TaskID string
	Source model.ColumnKey

	// Target is the hovered column while Phase is Hovering.
	Target model.ColumnKey

	// Focus is the single visible column, or "" when all are shown.
	Focus model.ColumnKey
}

// Coordinator is the drag state machine. It is driven from one goroutine
// (the UI loop) and is not safe for concurrent use.
type Coordinator struct {
	mover Mover
	state State
}

// New returns an idle coordinator that moves tasks through m.
func New(m Mover) *Coordinator {
	return &Coordinator{mover: m}
}

// State returns the current drag state.
func (c *Coordinator) State() State { return c.state }

// Dragging reports whether a task is picked up.
func (c *Coordinator) Dragging() bool { return c.state.Phase != Idle }

// PickUp records taskID as dragged from source. Picking up while another
// drag is in progress replaces it.
func (c *Coordinator) PickUp(taskID string, source model.ColumnKey) {
	c.state.Phase = Picked
	c.state.TaskID = taskID
	c.state.Source = source
	c.state.Target = ""
}

// Hover marks target as the column under the dragged task. It reports
// false, changing nothing, when no task is picked up or when a focused
// column excludes target.
func (c *Coordinator) Hover(target model.ColumnKey) bool {
	if c.state.Phase == Idle || !c.allowed(target) {
		return false
	}
	c.state.Phase = Hovering
	c.state.Target = target
	return true
}

// Leave clears the hovered column.
func (c *Coordinator) Leave() {
	if c.state.Phase == Hovering {
		c.state.Phase = Picked
		c.state.Target = ""
	}
}

// Drop ends the drag over target. Dropping onto the source column, onto a
// column excluded by focus, or with nothing picked up returns a nil
// mutation. Otherwise the move is applied to the board at once and the
// returned mutation must be committed to reach the record store. The drag
// state is cleared in every case.
func (c *Coordinator) Drop(target model.ColumnKey) (*board.Mutation, error) {
	st := c.state
	defer c.End()

	if st.Phase == Idle || !c.allowed(target) || st.Source == target {
		return nil, nil
	}
	return c.mover.BeginMove(st.TaskID, target)
}

// DropHovered drops onto the hovered column, or onto the source when no
// column is hovered.
func (c *Coordinator) DropHovered() (*board.Mutation, error) {
	target := c.state.Source
	if c.state.Phase == Hovering {
		target = c.state.Target
	}
	return c.Drop(target)
}

// Cancel abandons the drag without moving anything.
func (c *Coordinator) Cancel() { c.End() }

// End clears the drag state. It is safe to call at any time.
func (c *Coordinator) End() {
	focus := c.state.Focus
	c.state = State{Focus: focus}
}

// ToggleFocus shows only key, or every column again when key is already
// focused. It returns the new focus.
func (c *Coordinator) ToggleFocus(key model.ColumnKey) model.ColumnKey {
	if c.state.Focus == key {
		c.state.Focus = ""
	} else {
		c.state.Focus = key
	}
	if c.state.Phase == Hovering && !c.allowed(c.state.Target) {
		c.Leave()
	}
	return c.state.Focus
}

// Focus returns the focused column, or "".
func (c *Coordinator) Focus() model.ColumnKey { return c.state.Focus }

func (c *Coordinator) allowed(target model.ColumnKey) bool {
	return c.state.Focus == "" || c.state.Focus == target
}
