package output

import (
	"encoding/json"
	"io"
)

// ErrorCode classifies a failed command in the JSON envelope.
type ErrorCode string

const (
	ErrGeneral     ErrorCode = "GENERAL_ERROR"
	ErrNotFound    ErrorCode = "NOT_FOUND"
	ErrValidation  ErrorCode = "VALIDATION_ERROR"
	ErrConflict    ErrorCode = "CONFLICT"
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	ErrAborted     ErrorCode = "ABORTED"
)

const (
	ExitSuccess     = 0
	ExitGeneral     = 1
	ExitNotFound    = 2
	ExitValidation  = 3
	ExitConflict    = 4
	ExitRateLimited = 5
	ExitAborted     = 6
)

var exitCodes = map[ErrorCode]int{
	ErrNotFound:    ExitNotFound,
	ErrValidation:  ExitValidation,
	ErrConflict:    ExitConflict,
	ErrRateLimited: ExitRateLimited,
	ErrAborted:     ExitAborted,
}

// ExitCodeForError returns the process exit code for code. Unknown codes
// exit with ExitGeneral.
func ExitCodeForError(code ErrorCode) int {
	if exit, ok := exitCodes[code]; ok {
		return exit
	}
	return ExitGeneral
}

// Resumable reports whether rerunning the same command continues the
// interrupted work from the staging store.
func Resumable(code ErrorCode) bool {
	return code == ErrRateLimited || code == ErrAborted
}

type successEnvelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type errorEnvelope struct {
	OK        bool      `json:"ok"`
	Error     string    `json:"error"`
	Code      ErrorCode `json:"code"`
	Resumable bool      `json:"resumable,omitempty"`
}

func encode(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeJSONSuccess(w io.Writer, data any, message string) {
	encode(w, successEnvelope{OK: true, Data: data, Message: message})
}

func writeJSONError(w io.Writer, err error, code ErrorCode) {
	encode(w, errorEnvelope{
		Error:     err.Error(),
		Code:      code,
		Resumable: Resumable(code),
	})
}
