// Package driver runs the directive pipeline over whole programs: directive
// collection and pairing, transformation construction, translator apply and
// compile-guard cleanup. TransformFiles runs independent documents in
// parallel, each with its own FileSet, program and translator.
package driver
