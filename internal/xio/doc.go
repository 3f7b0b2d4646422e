// Package xio reads and writes program documents and renders programs as
// Fortran-like source.
//
// A document is the serialized form of a program: its type records keyed by
// the stable type keys, the global symbols and the node tree. Documents are
// stored as JSON (.json) or msgpack (.xmp).
package xio
