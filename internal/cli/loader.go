package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/tessera/internal/ast"
	"github.com/roach88/tessera/internal/compiler"
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/opreg"
	"github.com/roach88/tessera/internal/source"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // File read error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Module store error
	ErrCodeDocument    = "E010" // Malformed AST document

	// Operator manifest errors
	ErrCodeManifest = "E101" // Invalid operator manifest

	// Lowering errors
	ErrCodeUnboundName          = "E201"
	ErrCodeWrongArgumentCount   = "E202"
	ErrCodeUnsupportedConstruct = "E203"
	ErrCodeUnknownOperator      = "E204"
	ErrCodeRedefinition         = "E205"
)

// LoadError represents an error that occurred while loading CLI inputs.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position for manifest errors
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDocument reads an AST document and registers its sources with sources.
func LoadDocument(path string, sources *source.Map) (*ast.Document, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("AST document not found: %s", path)}
	}
	doc, err := ast.LoadDocument(path)
	if err != nil {
		var docErr *ast.DocumentError
		if errors.As(err, &docErr) {
			return nil, &LoadError{Code: ErrCodeDocument, Message: docErr.Error()}
		}
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()}
	}
	for _, src := range doc.Sources {
		sources.Add(src.Name, src.Text)
	}
	return doc, nil
}

// LoadRegistry loads the operator registry from path, or the embedded
// default manifest when path is empty.
func LoadRegistry(path string) (*opreg.Registry, error) {
	var (
		reg *opreg.Registry
		err error
	)
	if path == "" {
		reg, err = opreg.Default()
	} else {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("operator manifest not found: %s", path)}
		}
		reg, err = opreg.Load(path)
	}
	if err != nil {
		var mErr *opreg.ManifestError
		if errors.As(err, &mErr) {
			return nil, &LoadError{Code: ErrCodeManifest, Message: fmt.Sprintf("%s: %s", mErr.Field, mErr.Message), Pos: mErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeManifest, Message: err.Error()}
	}
	return reg, nil
}

// MapDiagnosticToErrorCode maps a diagnostic code to a CLI error code.
func MapDiagnosticToErrorCode(code diag.Code) string {
	switch code {
	case diag.CodeUnboundName:
		return ErrCodeUnboundName
	case diag.CodeWrongArgumentCount:
		return ErrCodeWrongArgumentCount
	case diag.CodeUnsupportedConstruct:
		return ErrCodeUnsupportedConstruct
	case diag.CodeUnknownOperator:
		return ErrCodeUnknownOperator
	case diag.CodeRedefinition:
		return ErrCodeRedefinition
	default:
		return ErrCodeGeneric
	}
}

// parseError extracts error code and message from an error.
func parseError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapDiagnosticToErrorCode(compileErr.Code), compileErr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
