package recordstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// CodeNotFound is the RemoteError code for a missing record.
const CodeNotFound = "NOT_FOUND"

// RemoteError is a structured failure reported by the record store.
// Message is always set; Details, Hint and Code are optional.
type RemoteError struct {
	Message string
	Details string
	Hint    string
	Code    string

	cause error
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return e.Message + " (code " + e.Code + ")"
	}
	return e.Message
}

func (e *RemoteError) Unwrap() error { return e.cause }

// Display joins the populated fields into one user-facing line.
func (e *RemoteError) Display() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" Detalhes: ")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString(" Dica: ")
		b.WriteString(e.Hint)
	}
	if e.Code != "" {
		b.WriteString(" (Código: ")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	return b.String()
}

// translate maps driver errors onto RemoteError.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &RemoteError{Message: ErrNotFound.Error(), Code: CodeNotFound, cause: ErrNotFound}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &RemoteError{
			Message: pqErr.Message,
			Details: pqErr.Detail,
			Hint:    pqErr.Hint,
			Code:    string(pqErr.Code),
			cause:   err,
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return &RemoteError{
			Message: liteErr.Error(),
			Code:    strconv.Itoa(liteErr.Code()),
			cause:   err,
		}
	}

	return &RemoteError{Message: err.Error(), cause: err}
}
