// Package textutil provides text processing for label comparison and
// filename construction: token fingerprints with cosine similarity for the
// label-match threshold, gloss/label normalization shared by both corpus
// parsers, and filesystem-safe token sanitization.
package textutil
