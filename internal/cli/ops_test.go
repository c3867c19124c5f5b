package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tessera/internal/opreg"
)

func findOp(ops []OpJSON, name string) (OpJSON, bool) {
	for _, op := range ops {
		if op.Name == name {
			return op, true
		}
	}
	return OpJSON{}, false
}

func TestOps_DefaultText(t *testing.T) {
	out, _, err := runCommand(t, NewOpsCommand, "text")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "relu")
	assert.Contains(t, out, "rectified linear unit")
	assert.Contains(t, out, "operator(s) from default")
}

func TestOps_DefaultJSON(t *testing.T) {
	out, _, err := runCommand(t, NewOpsCommand, "json")
	require.NoError(t, err)

	resp, result := decodeResponse[OpsResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "default", result.Manifest)

	add, ok := findOp(result.Ops, "add")
	require.True(t, ok)
	assert.Equal(t, 2, add.Arity)
	assert.Equal(t, "broadcast", add.Pattern)
	assert.True(t, add.Fusable)
	assert.Equal(t, opreg.DefaultLevel, add.Level)

	concat, ok := findOp(result.Ops, "concatenate")
	require.True(t, ok)
	assert.Equal(t, opreg.Variadic, concat.Arity)
	assert.Equal(t, map[string]string{"axis": "int"}, concat.Attrs)

	argsort, ok := findOp(result.Ops, "argsort")
	require.True(t, ok)
	assert.False(t, argsort.Fusable)
}

func TestOps_CustomManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.cue")
	manifest := `op: {
	gelu: {arity: 1, pattern: "elemwise", doc: "gaussian error linear unit"}
}
`
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	out, _, err := runCommand(t, NewOpsCommand, "json", "--ops", path)
	require.NoError(t, err)

	_, result := decodeResponse[OpsResult](t, out)
	assert.Equal(t, path, result.Manifest)
	require.Len(t, result.Ops, 1)
	assert.Equal(t, "gelu", result.Ops[0].Name)
}

func TestOps_InvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.cue")
	require.NoError(t, os.WriteFile(path, []byte(`op: relu: {arity: 1}`+"\n"), 0644))

	out, _, err := runCommand(t, NewOpsCommand, "json", "--ops", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp, _ := decodeResponse[OpsResult](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeManifest, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "pattern is required")
}

func TestArityString(t *testing.T) {
	assert.Equal(t, "2", arityString(2))
	assert.Equal(t, "*", arityString(opreg.Variadic))
}

func TestAttrsString(t *testing.T) {
	assert.Equal(t, "-", attrsString(nil))
	assert.Equal(t, "axis:int[],keepdims:bool", attrsString(map[string]string{"keepdims": "bool", "axis": "int[]"}))
}
