package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

var labelFolder = cases.Fold()

// NormalizeLabel canonicalizes a gloss/category label the same way for both
// corpora: Unicode case folding, '#' markers stripped, and whitespace runs
// collapsed to single underscores. MS-ASL prefixes some clean_text values
// with '#'.
func NormalizeLabel(label string) string {
	folded := labelFolder.String(strings.TrimSpace(label))
	folded = strings.ReplaceAll(folded, "#", "")
	fields := strings.Fields(folded)
	return strings.Join(fields, "_")
}

// LabelsEqual reports whether two labels match under case- and
// whitespace-insensitive comparison.
func LabelsEqual(a, b string) bool {
	na, nb := NormalizeLabel(a), NormalizeLabel(b)
	return na != "" && na == nb
}
