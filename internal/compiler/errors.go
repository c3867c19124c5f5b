package compiler

import (
	"fmt"

	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
)

// CompileError is returned when lowering aborts. The diagnostic has already
// been emitted and rendered; Err is the render result (normally a
// *diag.AbortError, so errors.Is(err, diag.ErrAborted) holds).
type CompileError struct {
	Code    diag.Code
	Message string
	Span    ir.Span
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Code, e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
