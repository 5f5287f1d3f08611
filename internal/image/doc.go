// Package image defines the in-memory structural representation of a
// compiled program image: an assembly containing modules, type
// definitions, methods, and parameters, where each method owns an
// ordered instruction stream and a set of local variables.
//
// The representation is mutable by design; the rewriter and its
// processors edit it in place and serialize the result once at the end
// of a run. Branch targets and exception-region boundaries reference
// instructions by identity rather than by offset, so inserting
// instructions never invalidates existing control flow.
//
// The package also provides the on-disk codec for `.wvi` image files
// and a stack-balance verifier for method bodies.
package image
