package board

import (
	"errors"
	"strings"

	"github.com/nhle/weekly-planner/internal/recordstore"
)

// Validation errors. They are returned before any remote call and are not
// recorded in the snapshot.
var (
	ErrTitleRequired    = errors.New("title required")
	ErrColumnRequired   = errors.New("column required")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrItemTextRequired = errors.New("checklist item text required")
	ErrUnknownTask      = errors.New("unknown task")
	ErrUnknownItem      = errors.New("unknown checklist item")
	ErrBusy             = errors.New("another save is in progress")
	ErrClosed           = errors.New("board store closed")
)

// IsValidation reports whether err was rejected locally.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrTitleRequired, ErrColumnRequired, ErrUnknownColumn, ErrItemTextRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Op names a store operation for error messages and logs.
type Op string

const (
	OpLoad      Op = "load"
	OpSave      Op = "save"
	OpDelete    Op = "delete"
	OpMove      Op = "move"
	OpChecklist Op = "checklist"
)

var opPrefix = map[Op]string{
	OpLoad:      "Falha ao carregar dados",
	OpSave:      "Falha ao salvar tarefa",
	OpDelete:    "Falha ao excluir tarefa",
	OpMove:      "Falha ao mover tarefa",
	OpChecklist: "Falha ao atualizar checklist",
}

var opFallback = map[Op]string{
	OpLoad:      "Falha ao carregar dados do quadro.",
	OpSave:      "Ocorreu um erro desconhecido ao salvar a tarefa.",
	OpDelete:    "Ocorreu um erro desconhecido ao excluir a tarefa.",
	OpMove:      "Falha ao mover tarefa.",
	OpChecklist: "Ocorreu um erro desconhecido ao atualizar o checklist.",
}

// UserError is a remote failure as shown to the user.
type UserError struct {
	Op     Op
	TaskID string
	Err    error
}

// Error renders "<prefix>: <message>[ Detalhes: d][ Dica: h][ (Código: c)]",
// or the operation's generic message when the cause has no text.
func (e *UserError) Error() string {
	detail := Detail(e.Err)
	if detail == "" {
		if msg, ok := opFallback[e.Op]; ok {
			return msg
		}
		return "Ocorreu um erro desconhecido."
	}
	prefix, ok := opPrefix[e.Op]
	if !ok {
		return detail
	}
	return prefix + ": " + detail
}

func (e *UserError) Unwrap() error { return e.Err }

// Detail returns the user-facing text of err: the structured fields of a
// RemoteError when present, otherwise err's own text.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var re *recordstore.RemoteError
	if errors.As(err, &re) {
		return strings.TrimSpace(re.Display())
	}
	return strings.TrimSpace(err.Error())
}
