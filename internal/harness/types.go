package harness

import (
	"github.com/roach88/tessera/internal/diag"
	"github.com/roach88/tessera/internal/ir"
	"github.com/roach88/tessera/internal/source"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Pass is true when the outcome matched the expectation and every
	// assertion held.
	Pass bool

	// Module is the lowered module; nil when lowering aborted.
	Module *ir.Module

	// Err is the lowering error, if any.
	Err error

	// Diagnostics holds every rendered diagnostic in emission order.
	Diagnostics []diag.Diagnostic

	// Sources resolves diagnostic spans back to file names.
	Sources *source.Map

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Status reports StatusOK when a module was produced, StatusError otherwise.
func (r *Result) Status() string {
	if r.Module != nil && r.Err == nil {
		return StatusOK
	}
	return StatusError
}

// Aborting returns the first error-level diagnostic, the one that stopped
// lowering.
func (r *Result) Aborting() (diag.Diagnostic, bool) {
	for _, d := range r.Diagnostics {
		if d.Level.Aborts() {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}
