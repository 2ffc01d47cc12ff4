// Package core implements the CSV reshaping engine.
//
// This package is the heart of the application, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around a small set of pure functions plus one
// stateful session:
//
//   - Parse: tokenizes decoded source text into a [Grid] of rows and cells.
//   - Evaluate: maps one source [Row] through a [Configuration] of field
//     descriptors to one output row, including smart-answer resolution.
//   - Emit: renders the whole output CSV document from a configuration
//     and a grid.
//   - MarshalConfiguration / UnmarshalConfiguration: the portable JSON
//     document used to share a mapping between users.
//   - Service: the session that owns the current source bytes, decoded
//     grid, and live configuration, and serializes concurrent access
//     from the web layer.
//
// # Field descriptors
//
// Each output column is described by a [FieldDescriptor] with one of four
// kinds: a source column reference, a constant, the source filename, or a
// smart answer. A smart-answer field decodes a letter/digit answer key
// (full-width variants included) into either the normalized key or the
// text of the option column the key points to.
//
// # Totality
//
// Evaluation never fails. Unset or out-of-range column references produce
// empty strings, and undecodable answer keys fall back to the raw key, so
// the preview and the export always render something for any reachable
// configuration.
package core
