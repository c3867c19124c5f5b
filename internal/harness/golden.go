package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tessera/internal/ir"
)

// Snapshot converts a result to a map[string]any for canonical JSON
// serialization. Variable ids in the module are positional, so the snapshot
// does not depend on the id generator.
func Snapshot(name string, r *Result) (map[string]any, error) {
	diags := make([]any, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		entry := map[string]any{
			"level":   d.Level.String(),
			"message": d.Message,
			"line":    d.Span.StartLine,
			"col":     d.Span.StartCol,
		}
		if d.Code != "" {
			entry["code"] = string(d.Code)
		}
		if r.Sources != nil {
			entry["source"] = r.Sources.Name(d.Span.Source)
		}
		diags[i] = entry
	}

	snap := map[string]any{
		"scenario":    name,
		"status":      r.Status(),
		"diagnostics": diags,
	}
	if r.Module != nil {
		mod, err := ir.EncodeModule(r.Module)
		if err != nil {
			return nil, err
		}
		snap["module"] = mod
	}
	return snap, nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	data, err := ir.MarshalCanonical(snap)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, append(data, '\n'))
	return nil
}
