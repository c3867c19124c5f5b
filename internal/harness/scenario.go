package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a lowering test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scope lists AST documents lowered and stored before AST. Their
	// functions are visible to AST through the definition scope.
	Scope []string `yaml:"scope,omitempty"`

	// AST is the document under test.
	AST string `yaml:"ast"`

	// Strict rejects duplicate function names instead of keeping the last.
	Strict bool `yaml:"strict,omitempty"`

	// CheckOps validates operator calls against the default registry.
	CheckOps bool `yaml:"check_ops,omitempty"`

	// Expect is the overall outcome of lowering AST.
	Expect Expectation `yaml:"expect"`

	// Assertions inspect the lowered module and rendered diagnostics.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expectation describes how lowering ends.
type Expectation struct {
	// Status is "ok" or "error".
	Status string `yaml:"status"`

	// Code is the expected code of the aborting diagnostic.
	Code string `yaml:"code,omitempty"`

	// Message must be a substring of the aborting diagnostic's message.
	Message string `yaml:"message,omitempty"`

	// Line is the expected start line of the aborting diagnostic.
	Line int `yaml:"line,omitempty"`
}

// Expectation statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Assertion inspects a lowering result.
type Assertion struct {
	// Type is one of function, call, diagnostic, stored.
	Type string `yaml:"type"`

	// Function names the lowered function (function, call).
	Function string `yaml:"function,omitempty"`

	// Params is the expected parameter count (function).
	Params *int `yaml:"params,omitempty"`

	// Bindings is the expected number of top-level bindings (function).
	Bindings *int `yaml:"bindings,omitempty"`

	// Result is the expected kind of the body's result, e.g. "add" (function).
	Result string `yaml:"result,omitempty"`

	// Callee is global, op or var (call).
	Callee string `yaml:"callee,omitempty"`

	// Name is the callee name (call).
	Name string `yaml:"name,omitempty"`

	// CheckCallable is the expected CheckCallable flag (call).
	CheckCallable *bool `yaml:"check_callable,omitempty"`

	// Level and Code select diagnostics (diagnostic).
	Level string `yaml:"level,omitempty"`
	Code  string `yaml:"code,omitempty"`

	// Count is the expected number of matching diagnostics (diagnostic).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFunction   = "function"
	AssertCall       = "call"
	AssertDiagnostic = "diagnostic"
	AssertStored     = "stored"
)

// LoadScenario reads and parses a scenario YAML file. Document paths are
// resolved relative to the scenario file.
//
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving document paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) || basePath == "" {
			return p
		}
		return filepath.Join(basePath, p)
	}
	scenario.AST = resolve(scenario.AST)
	for i, p := range scenario.Scope {
		scenario.Scope[i] = resolve(p)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.AST == "" {
		return fmt.Errorf("ast is required")
	}

	for _, p := range append([]string{s.AST}, s.Scope...) {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("AST document not found: %s", p)
		}
	}

	switch s.Expect.Status {
	case StatusOK:
		if s.Expect.Code != "" || s.Expect.Message != "" || s.Expect.Line != 0 {
			return fmt.Errorf("expect: code, message and line require status %q", StatusError)
		}
	case StatusError:
	case "":
		return fmt.Errorf("expect.status is required")
	default:
		return fmt.Errorf("expect.status: unknown status %q", s.Expect.Status)
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFunction:
		if a.Function == "" {
			return fmt.Errorf("assertions[%d]: function is required for function", index)
		}
	case AssertCall:
		if a.Function == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: function and name are required for call", index)
		}
		switch a.Callee {
		case "global", "op", "var":
		default:
			return fmt.Errorf("assertions[%d]: callee must be global, op or var, got %q", index, a.Callee)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for diagnostic", index)
		}
	case AssertStored:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
