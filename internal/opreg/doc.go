// Package opreg is the primitive-operator registry consulted for calls that
// are neither intrinsics, locals nor sibling functions.
//
// Operators are declared in a CUE manifest:
//
//	op: {
//		relu: {arity: 1, pattern: "elemwise"}
//		sum:  {pattern: "comm_reduce", attrs: {axis: "int"}}
//	}
//
// A missing arity means the operator is variadic. The registry is optional:
// the compiler only consults it when early validation is requested.
package opreg
