package overlap_test

import (
	"errors"
	"testing"

	"glossmerge/internal/overlap"
	"glossmerge/internal/records"
	"glossmerge/internal/services"
)

func newResolver(strict bool) *overlap.Resolver {
	return overlap.NewResolver(0.5, 0.8, 0.05, strict, nil)
}

func wlaslRecord(id, url, label string, split records.Split) records.Instance {
	return records.Instance{
		InstanceID:    id,
		Source:        records.SourceWLASL,
		LabelText:     label,
		URL:           url,
		OriginalSplit: split,
	}
}

func msaslRecord(id, url, label string, split records.Split, start, end float64) records.Instance {
	return records.Instance{
		InstanceID:    id,
		Source:        records.SourceMSASL,
		LabelText:     label,
		URL:           url,
		OriginalSplit: split,
		HasInterval:   true,
		StartTime:     start,
		EndTime:       end,
	}
}

func entryFor(a, b records.Instance) records.OverlapEntry {
	return records.OverlapEntry{
		URL:           a.URL,
		WLASLID:       a.InstanceID,
		WLASLLabel:    a.LabelText,
		WLASLSplit:    a.OriginalSplit,
		MSASLID:       b.InstanceID,
		MSASLLabel:    b.LabelText,
		MSASLSplit:    b.OriginalSplit,
		MSASLStart:    b.StartTime,
		MSASLEnd:      b.EndTime,
		MSASLInterval: b.HasInterval,
	}
}

func TestExactMatchDiscardsMSASLSide(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 0, 5.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b},
		[]records.OverlapEntry{entryFor(a, b)},
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if got := result.Dispositions[a.Key()]; got != records.KeepOriginal {
		t.Fatalf("wlasl disposition = %q, want keep_original", got)
	}
	if got := result.Dispositions[b.Key()]; got != records.DiscardDuplicate {
		t.Fatalf("msasl disposition = %q, want discard_duplicate", got)
	}
	if result.DiscardCount() != 1 {
		t.Fatalf("discard count = %d, want 1", result.DiscardCount())
	}
	survivors := overlap.Survivors(result, []records.Instance{a}, []records.Instance{b})
	if len(survivors) != 1 || survivors[0].InstanceID != "a1" {
		t.Fatalf("unexpected survivors: %+v", survivors)
	}
}

func TestLoneSegmentEndInfersDuration(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	// No other record carries an end for the URL, so b's own end is the
	// duration evidence: a near-zero start reads as the whole video.
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 0.2, 7.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b},
		[]records.OverlapEntry{entryFor(a, b)},
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Decisions[0].Classification != overlap.ExactDuplicate {
		t.Fatalf("classification = %q, want exact_duplicate", result.Decisions[0].Classification)
	}
	if got := result.Dispositions[b.Key()]; got != records.DiscardDuplicate {
		t.Fatalf("msasl disposition = %q, want discard_duplicate", got)
	}
}

func TestPartialSegmentKeepsBothSides(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 1.0, 2.0)
	// A second MS-ASL record supplies the known 5-second duration.
	ref := msaslRecord("b2", "https://youtu.be/U", "cat", records.SplitTrain, 0, 5.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b, ref},
		[]records.OverlapEntry{entryFor(a, b)},
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if got := result.Dispositions[b.Key()]; got != records.KeepAsSegment {
		t.Fatalf("msasl disposition = %q, want keep_as_segment", got)
	}
	if got := result.Dispositions[a.Key()]; got != records.KeepOriginal {
		t.Fatalf("wlasl disposition = %q, want keep_original", got)
	}
	if len(result.Decisions) != 1 || result.Decisions[0].Classification != overlap.PartialSegment {
		t.Fatalf("unexpected decisions: %+v", result.Decisions)
	}
}

func TestContentMismatchTreatedAsDistinct(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	b := msaslRecord("b1", "https://youtu.be/U", "helicopter", records.SplitTrain, 1.0, 2.0)
	ref := msaslRecord("b2", "https://youtu.be/U", "cat", records.SplitTrain, 0, 5.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b, ref},
		[]records.OverlapEntry{entryFor(a, b)},
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if result.Decisions[0].Classification != overlap.ContentMismatch {
		t.Fatalf("classification = %q, want content_mismatch", result.Decisions[0].Classification)
	}
	if got := result.Dispositions[b.Key()]; got != records.KeepAsSegment {
		t.Fatalf("msasl disposition = %q, want keep_as_segment", got)
	}
}

func TestDiscardIsStickyAcrossPairings(t *testing.T) {
	a1 := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	a2 := wlaslRecord("a2", "https://youtu.be/U", "cat kitten", records.SplitTrain)
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 0, 5.0)
	// First pairing discards b as an exact duplicate of a1; the second
	// pairing (labels differ) must not revive it.
	entries := []records.OverlapEntry{entryFor(a1, b), entryFor(a2, b)}

	result, err := newResolver(false).Resolve(
		[]records.Instance{a1, a2}, []records.Instance{b}, entries,
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got := result.Dispositions[b.Key()]; got != records.DiscardDuplicate {
		t.Fatalf("msasl disposition = %q, want sticky discard_duplicate", got)
	}
	if result.DiscardCount() != 1 {
		t.Fatalf("discard recorded %d times, want once", result.DiscardCount())
	}
}

func TestBorderlineDurationResolvesToPartialWithWarning(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	// Start misses the exact band (0.5s) but sits within twice the
	// tolerance, so the safer partial-segment choice must win.
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 0.8, 5.0)
	ref := msaslRecord("b2", "https://youtu.be/U", "cat", records.SplitTrain, 0, 5.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b, ref},
		[]records.OverlapEntry{entryFor(a, b)},
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result.Decisions[0].Classification != overlap.PartialSegment {
		t.Fatalf("classification = %q, want partial_segment", result.Decisions[0].Classification)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(result.Warnings))
	}
	if got := result.Dispositions[b.Key()]; got != records.KeepAsSegment {
		t.Fatalf("msasl disposition = %q, want keep_as_segment", got)
	}
}

func TestMissingReferenceAggregatedUnlessStrict(t *testing.T) {
	a := wlaslRecord("a1", "https://youtu.be/U", "cat", records.SplitTrain)
	b := msaslRecord("b1", "https://youtu.be/U", "cat", records.SplitTest, 0, 5.0)
	good := entryFor(a, b)
	dangling := records.OverlapEntry{URL: "https://youtu.be/V", WLASLID: "ghost", MSASLID: "b1"}

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{b},
		[]records.OverlapEntry{dangling, good},
	)
	if err != nil {
		t.Fatalf("non-strict Resolve returned error: %v", err)
	}
	if result.MissingRefs == nil || !errors.Is(result.MissingRefs, services.ErrMissingReference) {
		t.Fatalf("expected aggregated missing reference, got %v", result.MissingRefs)
	}
	// The good entry must still have been resolved.
	if got := result.Dispositions[b.Key()]; got != records.DiscardDuplicate {
		t.Fatalf("good entry not resolved, disposition = %q", got)
	}

	if _, err := newResolver(true).Resolve(
		[]records.Instance{a}, []records.Instance{b},
		[]records.OverlapEntry{dangling, good},
	); !errors.Is(err, services.ErrMissingReference) {
		t.Fatalf("strict Resolve error = %v, want ErrMissingReference", err)
	}
}

func TestDefaultsForRecordsWithoutOverlap(t *testing.T) {
	a := wlaslRecord("a1", "", "cat", records.SplitTrain)
	bWhole := msaslRecord("b1", "https://youtu.be/X", "dog", records.SplitTrain, 0, -1)
	bSegment := msaslRecord("b2", "https://youtu.be/Y", "fish", records.SplitVal, 2.0, 4.0)

	result, err := newResolver(false).Resolve(
		[]records.Instance{a}, []records.Instance{bWhole, bSegment}, nil,
	)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got := result.Dispositions[a.Key()]; got != records.KeepOriginal {
		t.Fatalf("wlasl default = %q, want keep_original", got)
	}
	if got := result.Dispositions[bWhole.Key()]; got != records.KeepOriginal {
		t.Fatalf("whole-video msasl default = %q, want keep_original", got)
	}
	if got := result.Dispositions[bSegment.Key()]; got != records.KeepAsSegment {
		t.Fatalf("segment msasl default = %q, want keep_as_segment", got)
	}
	// Every record received a disposition.
	if len(result.Dispositions) != 3 {
		t.Fatalf("dispositions = %d, want 3", len(result.Dispositions))
	}
}
