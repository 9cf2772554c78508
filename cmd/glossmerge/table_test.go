package main

import (
	"strings"
	"testing"
)

func TestRenderTableAlignsNumericColumns(t *testing.T) {
	out := renderTable(
		[]column{{title: "Label"}, {title: "Similarity", numeric: true}},
		[][]string{
			{"book", "0.812"},
			{"cat"},
		},
	)

	if !strings.Contains(out, "│ Label │ Similarity │") {
		t.Fatalf("header misrendered:\n%s", out)
	}
	// Numeric cells are right-aligned against the header width.
	if !strings.Contains(out, "│ book  │      0.812 │") {
		t.Fatalf("numeric column not right-aligned:\n%s", out)
	}
	// A short row is padded with empty cells, not truncated.
	if !strings.Contains(out, "│ cat   │            │") {
		t.Fatalf("short row not padded:\n%s", out)
	}
}

func TestRenderTableEmptyColumns(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
