package overlap

import (
	"fmt"
	"log/slog"
	"math"

	"glossmerge/internal/logging"
	"glossmerge/internal/records"
	"glossmerge/internal/textutil"
)

// Classification names the relationship between two records sharing a URL.
type Classification string

const (
	ExactDuplicate  Classification = "exact_duplicate"
	PartialSegment  Classification = "partial_segment"
	ContentMismatch Classification = "content_mismatch"
)

// Decision records how one overlap pairing was classified.
type Decision struct {
	Entry          records.OverlapEntry
	Classification Classification
	Similarity     float64
}

// Warning flags a pairing that fell near a threshold boundary and was
// resolved with the non-destructive choice.
type Warning struct {
	URL        string
	WLASLID    string
	MSASLID    string
	Reason     string
	Similarity float64
}

// Discard explains why a record was removed from downstream output.
type Discard struct {
	Key    records.Key
	URL    string
	Reason string
}

// Result carries dispositions for every input record plus the audit trail.
type Result struct {
	Dispositions map[records.Key]records.Disposition
	Decisions    []Decision
	Discards     []Discard
	Warnings     []Warning
	// MissingRefs aggregates overlap entries whose records could not be
	// located; nil when every entry resolved.
	MissingRefs error
}

// DiscardCount returns how many records were marked duplicate.
func (r *Result) DiscardCount() int {
	return len(r.Discards)
}

// Resolver classifies overlap entries into dispositions.
type Resolver struct {
	// TimeTolerance bounds how far a segment may deviate from the full
	// video while still counting as exact (seconds).
	TimeTolerance float64
	// SimilarityThreshold separates matching labels from content
	// mismatches.
	SimilarityThreshold float64
	// AmbiguityMargin is the band around thresholds flagged for audit.
	AmbiguityMargin float64
	// Strict aborts on the first dangling overlap entry.
	Strict bool

	logger *slog.Logger
}

// NewResolver constructs a resolver with the given thresholds.
func NewResolver(timeTolerance, similarityThreshold, ambiguityMargin float64, strict bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		TimeTolerance:       timeTolerance,
		SimilarityThreshold: similarityThreshold,
		AmbiguityMargin:     ambiguityMargin,
		Strict:              strict,
		logger:              logging.NewComponentLogger(logger, "overlap"),
	}
}

// Resolve classifies every overlap entry and assigns a disposition to every
// record from both collections. Records never appearing in an overlap entry
// receive their source's default disposition. Entries referencing absent
// records abort the run in strict mode; otherwise the findings are carried
// on the result and the entries skipped. The input collections are not
// mutated.
func (r *Resolver) Resolve(wlasl, msasl []records.Instance, entries []records.OverlapEntry) (*Result, error) {
	wlaslIdx := records.Index(wlasl)
	msaslIdx := records.Index(msasl)
	durations := knownDurations(wlasl, msasl)

	result := &Result{
		Dispositions: make(map[records.Key]records.Disposition, len(wlasl)+len(msasl)),
	}

	if err := records.ValidateOverlaps(entries, wlaslIdx, msaslIdx); err != nil {
		if r.Strict {
			return nil, err
		}
		result.MissingRefs = err
	}

	for _, entry := range entries {
		a, okA := wlaslIdx[entry.WLASLKey()]
		b, okB := msaslIdx[entry.MSASLKey()]
		if !okA || !okB {
			continue
		}
		r.resolvePair(result, a, b, entry, durations)
	}

	r.applyDefaults(result, wlasl, msasl)
	return result, nil
}

// resolvePair classifies one pairing and folds the outcome into the result.
// The WLASL side of a pairing always survives; only the MS-ASL side can be
// discarded, and a discard is never reverted by a later pairing.
func (r *Resolver) resolvePair(result *Result, a, b records.Instance, entry records.OverlapEntry, durations map[string]float64) {
	similarity := textutil.LabelSimilarity(a.LabelText, b.LabelText)
	labelsEqual := textutil.LabelsEqual(a.LabelText, b.LabelText)
	duration, durationKnown := durations[entry.URL]

	classification, warnReason := r.classify(b, similarity, labelsEqual, duration, durationKnown)

	result.Decisions = append(result.Decisions, Decision{
		Entry:          entry,
		Classification: classification,
		Similarity:     similarity,
	})
	if warnReason != "" {
		result.Warnings = append(result.Warnings, Warning{
			URL:        entry.URL,
			WLASLID:    entry.WLASLID,
			MSASLID:    entry.MSASLID,
			Reason:     warnReason,
			Similarity: similarity,
		})
		r.logger.Warn("ambiguous overlap classification",
			logging.String("url", entry.URL),
			logging.String("reason", warnReason),
			logging.Float64("similarity", similarity))
	}

	setDisposition(result.Dispositions, a.Key(), records.KeepOriginal)

	bKey := b.Key()
	switch classification {
	case ExactDuplicate:
		if result.Dispositions[bKey] != records.DiscardDuplicate {
			result.Discards = append(result.Discards, Discard{
				Key:    bKey,
				URL:    entry.URL,
				Reason: fmt.Sprintf("exact duplicate of wlasl %s", entry.WLASLID),
			})
		}
		result.Dispositions[bKey] = records.DiscardDuplicate
	default:
		// Discard is sticky: a keep from this pairing never reverts one.
		if result.Dispositions[bKey] != records.DiscardDuplicate {
			result.Dispositions[bKey] = records.KeepAsSegment
		}
	}
}

// classify applies the precedence order. The returned reason is non-empty
// when the pairing fell into an ambiguity band and was resolved with the
// safer partial-segment choice.
func (r *Resolver) classify(b records.Instance, similarity float64, labelsEqual bool, duration float64, durationKnown bool) (Classification, string) {
	wholeVideo, nearWhole := r.intervalMatch(b, duration, durationKnown)

	if labelsEqual && wholeVideo {
		return ExactDuplicate, ""
	}
	if labelsEqual && nearWhole {
		return PartialSegment, "duration within twice the tolerance of a full-video match"
	}
	if math.Abs(similarity-r.SimilarityThreshold) <= r.AmbiguityMargin {
		return PartialSegment, fmt.Sprintf("label similarity %.3f within %.3f of threshold %.3f", similarity, r.AmbiguityMargin, r.SimilarityThreshold)
	}
	if similarity < r.SimilarityThreshold {
		return ContentMismatch, ""
	}
	return PartialSegment, ""
}

// intervalMatch reports whether the MS-ASL segment covers the whole source
// video within tolerance, and whether it only misses by the borderline band
// (up to twice the tolerance).
func (r *Resolver) intervalMatch(b records.Instance, duration float64, durationKnown bool) (whole, near bool) {
	if !b.HasInterval {
		return true, false
	}
	startDelta := b.StartTime
	if startDelta < 0 {
		startDelta = 0
	}
	// A record's own explicit end feeds the per-URL duration inference, so
	// an unknown duration implies the end is open and reads as end-of-video.
	var endDelta float64
	if durationKnown {
		endDelta = math.Abs(b.EndTime - duration)
	}
	delta := math.Max(startDelta, endDelta)
	if delta <= r.TimeTolerance {
		return true, false
	}
	if delta <= 2*r.TimeTolerance {
		return false, true
	}
	return false, false
}

// applyDefaults assigns dispositions to records untouched by any overlap
// entry: WLASL records keep their original bytes, MS-ASL records trim when
// they specify a non-trivial interval.
func (r *Resolver) applyDefaults(result *Result, wlasl, msasl []records.Instance) {
	for _, rec := range wlasl {
		setDisposition(result.Dispositions, rec.Key(), records.KeepOriginal)
	}
	for _, rec := range msasl {
		if _, seen := result.Dispositions[rec.Key()]; seen {
			continue
		}
		if rec.TrivialInterval(r.TimeTolerance) {
			result.Dispositions[rec.Key()] = records.KeepOriginal
		} else {
			result.Dispositions[rec.Key()] = records.KeepAsSegment
		}
	}
}

// Survivors filters the input collections down to records whose disposition
// is anything but discard, preserving input order.
func Survivors(result *Result, collections ...[]records.Instance) []records.Instance {
	var out []records.Instance
	for _, collection := range collections {
		for _, rec := range collection {
			if result.Dispositions[rec.Key()] != records.DiscardDuplicate {
				out = append(out, rec)
			}
		}
	}
	return out
}

// knownDurations infers full-video durations per URL from records carrying
// explicit end times. The largest end seen for a URL is the best available
// lower bound on the video's length. Every record participates, including
// the one under classification, so a segment whose own end is the only
// evidence reads as running to the end of the video.
func knownDurations(collections ...[]records.Instance) map[string]float64 {
	durations := make(map[string]float64)
	for _, collection := range collections {
		for _, rec := range collection {
			if rec.URL == "" || !rec.HasInterval || rec.EndTime <= 0 {
				continue
			}
			if rec.EndTime > durations[rec.URL] {
				durations[rec.URL] = rec.EndTime
			}
		}
	}
	return durations
}

func setDisposition(dispositions map[records.Key]records.Disposition, key records.Key, d records.Disposition) {
	if dispositions[key] == records.DiscardDuplicate {
		return
	}
	dispositions[key] = d
}
