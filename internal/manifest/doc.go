// Package manifest persists reconciliation runs to SQLite: dispositions,
// final metadata rows, the discard report, warnings, and the processing
// work plan. It also exports the flat CSV tables the rest of the pipeline
// consumes.
package manifest
