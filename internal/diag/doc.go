// Package diag defines the diagnostic model shared by the constraint-file
// reader, the summary reader and the solver driver.
//
// A Diagnostic carries a Severity, a stable numeric Code, a short message,
// the primary source.Span and optional notes. Producers emit through a
// Reporter (usually a BagReporter feeding a Bag); rendering lives in
// internal/diagfmt.
//
// Code ranges:
//
//	1000-1999 PAR  textual grammar (type variables, labels, constraints)
//	2000-2999 DOC  document structure of constraint and summary files
//	3000-3999 GRF  graph invariant violations found while solving
//	4000-4999 LAT  soft lattice conflicts (always warnings)
//	5000-5999 IO   file and cache access
//	6000-6999 CFG  retype.toml
//	7000-7999 OBS  timings and other observability output
package diag
