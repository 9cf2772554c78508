// Package overlap classifies cross-corpus URL overlaps and derives a
// disposition for every record.
//
// Classification precedence per overlap pairing: exact duplicate, then
// partial segment, then content mismatch. Discard decisions are sticky
// across pairings sharing a record, and borderline classifications fall
// back to the non-destructive partial-segment choice with an audit warning.
package overlap
