// Package diag records leveled diagnostics tied to IR spans and aborts
// compilation when an error has been recorded.
package diag

import (
	"strings"

	"github.com/roach88/tessera/internal/ir"
)

// Level captures how impactful the diagnostic is.
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelBug
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelBug:
		return "bug"
	default:
		return "error"
	}
}

// ParseLevel maps a level name to a Level. Unknown names are errors.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "warning":
		return LevelWarning
	case "bug":
		return LevelBug
	default:
		return LevelError
	}
}

// Aborts reports whether a diagnostic at this level stops compilation.
func (l Level) Aborts() bool {
	return l != LevelWarning
}

// Code is a stable identifier for a diagnostic.
type Code string

const (
	CodeUnboundName          Code = "UNBOUND_NAME"
	CodeWrongArgumentCount   Code = "WRONG_ARGUMENT_COUNT"
	CodeUnsupportedConstruct Code = "UNSUPPORTED_CONSTRUCT"
	CodeUnknownOperator      Code = "UNKNOWN_OPERATOR"
	CodeRedefinition         Code = "REDEFINITION"
)

// Diagnostic is a single message surfaced to end users.
type Diagnostic struct {
	Level   Level
	Code    Code
	Message string
	Span    ir.Span
}
