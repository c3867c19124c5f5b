// Package ast defines the already-parsed syntax tree consumed by the tessera
// frontend.
//
// The frontend never parses concrete syntax. A host tool (or a YAML document,
// see LoadDocument) supplies a Module of function definitions whose statements
// are single assignments followed by one trailing return.
//
// Every node family (Stmt, Expr, Type) is a sealed interface: only types in
// this package implement it, so a type switch in the compiler is the single,
// exhaustive dispatch point over node kinds.
package ast
