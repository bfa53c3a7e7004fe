package output

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Writer prints what a command produces. In JSON mode the single envelope
// on Stdout is the only output. In human mode results go to Stdout, while
// phase progress, notes, warnings and errors go to Stderr.
type Writer struct {
	JSONMode  bool
	QuietMode bool
	Stdout    io.Writer
	Stderr    io.Writer

	// Now times migration phases; nil means time.Now.
	Now func() time.Time

	phase      string
	phaseStart time.Time
}

// New creates a Writer on os.Stdout and os.Stderr.
func New(jsonMode, quietMode bool) *Writer {
	return &Writer{
		JSONMode:  jsonMode,
		QuietMode: quietMode,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// progress reports whether progress lines are printed at all.
func (w *Writer) progress() bool {
	return !w.QuietMode && !w.JSONMode
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Success ends the running phase and renders the command result, as a
// success envelope in JSON mode or as message in human mode.
func (w *Writer) Success(data any, message string) {
	if w.JSONMode {
		writeJSONSuccess(w.Stdout, data, message)
		return
	}
	w.EndPhase()
	writeResult(w.Stdout, message)
}

// Error renders err and returns the exit code for code. A phase cut short
// by the error is dropped without a timing line.
func (w *Writer) Error(err error, code ErrorCode) int {
	w.phase = ""
	if w.JSONMode {
		writeJSONError(w.Stdout, err, code)
	} else {
		writeLine(w.Stderr, errorMark, err.Error())
	}
	return ExitCodeForError(code)
}

// Info writes a note to Stderr unless quiet or in JSON mode.
func (w *Writer) Info(format string, args ...any) {
	if !w.progress() {
		return
	}
	writeLine(w.Stderr, infoMark, fmt.Sprintf(format, args...))
}

// Warn writes a warning to Stderr. Quiet mode keeps warnings; JSON mode
// drops them.
func (w *Writer) Warn(format string, args ...any) {
	if w.JSONMode {
		return
	}
	writeLine(w.Stderr, warnMark, fmt.Sprintf(format, args...))
}

// Phase starts a named migration phase, ending the previous one.
func (w *Writer) Phase(name string) {
	if !w.progress() {
		return
	}
	w.EndPhase()
	writeLine(w.Stderr, phaseMark, name)
	w.phase = name
	w.phaseStart = w.now()
}

// EndPhase prints how long the running phase took. It is a no-op when no
// phase is running.
func (w *Writer) EndPhase() {
	if w.phase == "" {
		return
	}
	took := w.now().Sub(w.phaseStart)
	if took >= time.Second {
		took = took.Round(time.Second)
	} else {
		took = took.Round(time.Millisecond)
	}
	writeLine(w.Stderr, timingMark, fmt.Sprintf("%s took %s", w.phase, took))
	w.phase = ""
}
