// Package records defines the shared data model for corpus reconciliation:
// instance records normalized from either source corpus, cross-corpus
// overlap entries, per-record dispositions, and the final metadata rows
// written at the end of a run.
//
// Reconciliation stages never mutate a record's label, URL, or interval in
// place. They annotate records through side tables (disposition maps, split
// maps) so every decision stays auditable against the normalized input.
package records
