package opreg

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	relu, ok := r.Lookup("relu")
	require.True(t, ok)
	assert.Equal(t, 1, relu.Arity)
	assert.Equal(t, PatternElemwise, relu.Pattern)
	assert.Equal(t, "rectified linear unit", relu.Doc)

	sum, ok := r.Lookup("sum")
	require.True(t, ok)
	assert.Equal(t, PatternCommReduce, sum.Pattern)
	assert.Equal(t, "bool", sum.Attrs["keepdims"])

	concat, ok := r.Lookup("concatenate")
	require.True(t, ok)
	assert.Equal(t, Variadic, concat.Arity)

	assert.NoError(t, r.ValidateOp("add", 2))
}

func TestLoadBytes(t *testing.T) {
	src := `
op: {
	gelu: {arity: 1, pattern: "elemwise", level: 11}
	"fused-attn": {pattern: "opaque"}
}
`
	r, err := LoadBytes("custom.cue", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"fused-attn", "gelu"}, r.Names())

	gelu, _ := r.Lookup("gelu")
	assert.Equal(t, 11, gelu.Level)
}

func TestLoadBytesErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"no op table", `other: 1`, "op"},
		{"missing pattern", `op: relu: {arity: 1}`, "op.relu.pattern"},
		{"unknown pattern", `op: relu: {pattern: "fancy"}`, "op.relu.pattern"},
		{"negative arity", `op: relu: {arity: -2, pattern: "elemwise"}`, "op.relu.arity"},
		{"unknown field", `op: relu: {pattern: "elemwise", shape_fn: "x"}`, "op.relu.shape_fn"},
		{"attr kind not a string", `op: sum: {pattern: "comm_reduce", attrs: {axis: 1}}`, "op.sum.attrs.axis"},
		{"operator not a struct", `op: relu: 1`, "op.relu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes("bad.cue", []byte(tt.src))
			require.Error(t, err)
			var merr *ManifestError
			require.True(t, errors.As(err, &merr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, merr.Field)
		})
	}
}

func TestLoadBytesSyntaxError(t *testing.T) {
	_, err := LoadBytes("broken.cue", []byte(`op: {`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestLoadFileAndDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ops.cue")
	require.NoError(t, os.WriteFile(path, []byte("package ops\n\nop: relu: {arity: 1, pattern: \"elemwise\"}\n"), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())

	r, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"relu"}, r.Names())

	_, err = Load(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)
}
