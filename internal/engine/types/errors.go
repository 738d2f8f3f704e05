package types

import "fmt"

// CompileError is a fatal error raised while compiling a script: unknown
// directive, malformed arity, unparseable integer, unknown comparison
// operator, or an unresolved label. It carries the file name and, for
// errors raised during the line pass, the 1-based line number, mirroring the
// teacher VM's *VMError wrapper. Unresolved-label errors are raised after
// the line pass and carry the file name with Line 0; they do not name the
// line of the offending goto.
type CompileError struct {
	File    string
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// RuntimeError is a fatal error raised while stepping a compiled script:
// writing through a reference, a non-Offset label reaching dispatch, or
// dereferencing an absent variable in Branch/Choice. The script is
// malformed; no recovery is attempted.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func NewRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
