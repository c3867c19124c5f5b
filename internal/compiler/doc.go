// Package compiler lowers an already-parsed AST module into the functional IR.
//
// Lowering is a structural recursion over the AST. Each function gets its own
// scope table and binding stack; only the finished function is inserted into
// the shared ir.Module. Every error path emits a diagnostic, renders it and
// aborts: there is no recovery and no partial IR.
//
// Call targets are classified in a fixed order:
//
//  1. intrinsics (broadcast_shape, compute), exactly two arguments
//  2. names bound in the local scope
//  3. functions exported by the definition scope (imported into the module)
//  4. everything else is deferred to the primitive-operator registry
package compiler
