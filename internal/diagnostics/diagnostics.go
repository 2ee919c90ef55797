// Package diagnostics defines the error values reported by the compiler and
// the virtual machine, and the text format they are rendered in.
package diagnostics

import (
	"fmt"
	"io"
	"strings"

	"github.com/funvibe/glox/internal/config"
	"github.com/funvibe/glox/internal/token"
)

// CompileError is a lexical, syntactic or semantic error found while compiling.
type CompileError struct {
	Line    int
	Where   string // " at 'x'", " at end" or empty for lexical errors
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", e.Line, e.Where, e.Message)
}

// NewTokenError builds a CompileError located at tok.
func NewTokenError(tok token.Token, message string) *CompileError {
	var where string
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		// The lexeme is the message itself.
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	return &CompileError{Line: tok.Line, Where: where, Message: message}
}

// Frame is one line of a runtime stack trace.
type Frame struct {
	Line     int
	Function string // empty for the top-level script
}

func (f Frame) String() string {
	if f.Function == "" {
		return fmt.Sprintf("[line %d] in %s", f.Line, config.ScriptName)
	}
	return fmt.Sprintf("[line %d] in %s()", f.Line, f.Function)
}

// RuntimeError aborts a top-level execution. Trace is innermost first.
type RuntimeError struct {
	Message string
	Trace   []Frame
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, f := range e.Trace {
		sb.WriteString("\n")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// Line returns the line of the innermost frame, or 0 without a trace.
func (e *RuntimeError) Line() int {
	if len(e.Trace) == 0 {
		return 0
	}
	return e.Trace[0].Line
}

// FormatList renders an error list one error per line. It is used as the
// ErrorFormat of the compiler's multierror so that the aggregate prints
// exactly like the diagnostic stream.
func FormatList(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Report writes err to w followed by a newline. Aggregates produced by the
// compiler are already line-formatted by FormatList.
func Report(w io.Writer, err error) {
	if err == nil || w == nil {
		return
	}
	fmt.Fprintln(w, err.Error())
}
