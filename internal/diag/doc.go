// Package diag defines the diagnostic model shared by the directive parser,
// the transformation engine and the driver.
//
// Diagnostic is the central record: a Severity, a numeric Code with a stable
// string form (DIR2xxx for directives, TR3xxx for transformations, IO4xxx for
// input and output), a short message, the primary source.Span and optional
// notes. Producers emit through a Reporter; BagReporter stores into a Bag that
// the driver sorts, deduplicates and hands to internal/diagfmt for rendering.
//
// Package diag performs no formatting beyond the single-line short form used
// by tests and the --format=short CLI output.
package diag
