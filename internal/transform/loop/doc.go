// Package loop implements the loop transformations: loop-extract, which
// hoists a loop out of a called function and wraps the call site in it, and
// loop-fusion, which merges sibling loops over the same iteration range.
package loop
