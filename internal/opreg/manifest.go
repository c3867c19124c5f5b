package opreg

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed default.cue
var defaultManifest []byte

// ManifestError is a manifest problem with its CUE position.
type ManifestError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ManifestError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns a registry built from the embedded default manifest.
func Default() (*Registry, error) {
	return LoadBytes("default.cue", defaultManifest)
}

// Load reads a manifest from a .cue file or a directory of them.
func Load(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("operator manifest: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("operator manifest: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes compiles a single manifest file.
func LoadBytes(filename string, data []byte) (*Registry, error) {
	ctx := cuecontext.New()
	return FromValue(ctx.CompileBytes(data, cue.Filename(filename)))
}

// LoadDir loads the CUE package in dir.
func LoadDir(dir string) (*Registry, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &ManifestError{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	ctx := cuecontext.New()
	return FromValue(ctx.BuildInstance(inst))
}

// FromValue builds a registry from the `op` table of v.
func FromValue(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	table := v.LookupPath(cue.ParsePath("op"))
	if !table.Exists() {
		return nil, &ManifestError{Field: "op", Message: "manifest has no op table", Pos: v.Pos()}
	}

	iter, err := table.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	reg := New()
	for iter.Next() {
		op, err := parseOp(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := reg.Register(op); err != nil {
			return nil, &ManifestError{Field: "op." + op.Name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return reg, nil
}

var knownFields = map[string]bool{
	"arity":   true,
	"pattern": true,
	"level":   true,
	"attrs":   true,
	"doc":     true,
}

func parseOp(name string, v cue.Value) (*Op, error) {
	field := "op." + name
	fields, err := v.Fields()
	if err != nil {
		return nil, &ManifestError{Field: field, Message: "operator must be a struct", Pos: v.Pos()}
	}
	for fields.Next() {
		if !knownFields[fields.Label()] {
			return nil, &ManifestError{
				Field:   field + "." + fields.Label(),
				Message: "unknown field",
				Pos:     fields.Value().Pos(),
			}
		}
	}

	op := &Op{Name: name, Arity: Variadic, Level: DefaultLevel}

	patVal := v.LookupPath(cue.ParsePath("pattern"))
	if !patVal.Exists() {
		return nil, &ManifestError{Field: field + ".pattern", Message: "pattern is required", Pos: v.Pos()}
	}
	s, err := patVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	op.Pattern, err = ParsePattern(s)
	if err != nil {
		return nil, &ManifestError{Field: field + ".pattern", Message: err.Error(), Pos: patVal.Pos()}
	}

	if a := v.LookupPath(cue.ParsePath("arity")); a.Exists() {
		n, err := a.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if n < 0 {
			return nil, &ManifestError{Field: field + ".arity", Message: "arity must not be negative", Pos: a.Pos()}
		}
		op.Arity = int(n)
	}

	if l := v.LookupPath(cue.ParsePath("level")); l.Exists() {
		n, err := l.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		op.Level = int(n)
	}

	if d := v.LookupPath(cue.ParsePath("doc")); d.Exists() {
		op.Doc, err = d.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
	}

	if attrs := v.LookupPath(cue.ParsePath("attrs")); attrs.Exists() {
		iter, err := attrs.Fields()
		if err != nil {
			return nil, &ManifestError{Field: field + ".attrs", Message: "attrs must be a struct", Pos: attrs.Pos()}
		}
		op.Attrs = make(map[string]string)
		for iter.Next() {
			kind, err := iter.Value().String()
			if err != nil {
				return nil, &ManifestError{
					Field:   field + ".attrs." + iter.Label(),
					Message: "attribute kind must be a string",
					Pos:     iter.Value().Pos(),
				}
			}
			op.Attrs[iter.Label()] = kind
		}
	}

	return op, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &ManifestError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
