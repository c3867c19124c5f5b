// Package harness runs lowering scenarios: AST documents paired with the
// outcome lowering must produce.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	scope:
//	  - lib.yaml          # lowered first; its functions are callable by name
//	ast: kernel.yaml      # the document under test
//	strict: false         # reject duplicate function names
//	check_ops: false      # validate operator calls against the default registry
//	expect:
//	  status: error       # ok | error
//	  code: WRONG_ARGUMENT_COUNT
//	  message: "expected 2"
//	  line: 3
//	assertions:
//	  - type: function
//	    function: f
//	    params: 1
//	    bindings: 1
//	    result: var
//	  - type: call
//	    function: f
//	    callee: global
//	    name: helper
//	  - type: diagnostic
//	    level: warning
//	    code: REDEFINITION
//	    count: 1
//	  - type: stored
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - function: the lowered module holds the function, optionally with the
//     given parameter count, binding count and result kind
//   - call: some call in the function targets the given callee
//   - diagnostic: exactly count diagnostics with the level and code were rendered
//   - stored: the module survives a store round trip with the same hash
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a sequence id
// generator, so golden snapshots are byte-for-byte reproducible.
package harness
