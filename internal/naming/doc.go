// Package naming computes canonical output filenames for surviving records
// and the processing instruction (copy, fetch, trim) needed to materialize
// each file. It decides what work is required and from where; it never
// touches bytes itself.
package naming
