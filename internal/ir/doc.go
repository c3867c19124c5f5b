// Package ir provides the functional intermediate representation produced by
// the tessera frontend and consumed by the downstream tensor compiler.
//
// This package contains the data model plus its canonical encoding, content
// hashing, decoding and text printing. All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - Expr and Callee are sealed interfaces; type switches over them are exhaustive
//   - A function body is always a *Let (bindings + result)
//   - Variables are created once per binding site and never mutated
//   - Canonical encoding omits spans and alpha-normalizes variable ids, so a
//     function's hash depends on its structure only
package ir
