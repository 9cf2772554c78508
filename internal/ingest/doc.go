// Package ingest normalizes the two source annotation formats into the
// shared record shape and detects cross-corpus URL overlaps.
//
// The WLASL side is a single JSON file of glosses with instance lists; the
// MS-ASL side is three per-split JSON files of flat items. Both parsers
// normalize labels and URLs the same way and deduplicate within their own
// corpus before anything downstream runs.
package ingest
