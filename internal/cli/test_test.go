package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("..", "harness", "testdata", "scenarios")

// writeScenarioFile writes a shape_of scenario into dir with an absolute
// AST path so the directory can live anywhere.
func writeScenarioFile(t *testing.T, dir, name, status string) string {
	t.Helper()
	ast, err := filepath.Abs(astPath("shape.yaml"))
	require.NoError(t, err)

	content := "name: " + name + "\n" +
		"description: lowers a shape access\n" +
		"ast: " + ast + "\n" +
		"expect:\n  status: " + status + "\n"
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTestCommand_AllScenariosPass(t *testing.T) {
	out, _, err := runCommand(t, NewTestCommand, "text", scenariosDir)
	require.NoError(t, err, "output: %s", out)

	assert.Contains(t, out, "✓ shape_of")
	assert.Contains(t, out, "✓ cross_module")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, _, err := runCommand(t, NewTestCommand, "json", scenariosDir)
	require.NoError(t, err)

	resp, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 10, result.Total)
	assert.Equal(t, 10, result.Passed)
	assert.Zero(t, result.Failed)
	// Scenarios run in file name order.
	assert.Equal(t, "add", result.Scenarios[0].Name)
}

func TestTestCommand_Filter(t *testing.T) {
	out, _, err := runCommand(t, NewTestCommand, "json", "--filter", "redefinition_*", scenariosDir)
	require.NoError(t, err)

	_, result := decodeResponse[TestResult](t, out)
	assert.Equal(t, 2, result.Total)
}

func TestTestCommand_InvalidFilter(t *testing.T) {
	_, _, err := runCommand(t, NewTestCommand, "text", "--filter", "[", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, _, err := runCommand(t, NewTestCommand, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, _, err := runCommand(t, NewTestCommand, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "wrong_status", "error")

	out, _, err := runCommand(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_status")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\n"), 0644))

	out, _, err := runCommand(t, NewTestCommand, "json", dir)
	require.Error(t, err)

	_, result := decodeResponse[TestResult](t, out)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "broken.yaml", result.Scenarios[0].Name)
	assert.Contains(t, result.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTestCommand_UpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "shape_of", "ok")

	out, _, err := runCommand(t, NewTestCommand, "text", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ shape_of (golden updated)")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "shape_of.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "shape_of.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// The golden file is now compared on every run.
	_, _, err = runCommand(t, NewTestCommand, "text", dir)
	require.NoError(t, err)
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "shape_of", "ok")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "shape_of.golden"), []byte("{}\n"), 0644))

	out, _, err := runCommand(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "add.golden"), goldenFilePath(filepath.Join("s", "add.yaml")))
}
