package records

import (
	"fmt"
	"strings"
)

// Source identifies the origin corpus of a record.
type Source string

const (
	SourceWLASL Source = "wlasl"
	SourceMSASL Source = "msasl"
)

// Tag returns the short token used in filenames and log output.
func (s Source) Tag() string {
	switch s {
	case SourceWLASL:
		return "wl"
	case SourceMSASL:
		return "ms"
	default:
		return "xx"
	}
}

// Valid reports whether the source is one of the two known corpora.
func (s Source) Valid() bool {
	return s == SourceWLASL || s == SourceMSASL
}

// Split is an evaluation partition label.
type Split string

const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// AllSplits lists the partitions in canonical order.
var AllSplits = []Split{SplitTrain, SplitVal, SplitTest}

// Rank orders splits by strictness: test > val > train. A higher rank wins
// when overlapping records disagree on their original split.
func (s Split) Rank() int {
	switch s {
	case SplitTest:
		return 2
	case SplitVal:
		return 1
	case SplitTrain:
		return 0
	default:
		return -1
	}
}

// Valid reports whether the split is one of train/val/test.
func (s Split) Valid() bool {
	return s.Rank() >= 0
}

// ParseSplit normalizes a source-corpus split string. MS-ASL uses
// "validation" in some releases; both forms map to val.
func ParseSplit(value string) (Split, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "train", "training":
		return SplitTrain, nil
	case "val", "valid", "validation":
		return SplitVal, nil
	case "test":
		return SplitTest, nil
	default:
		return "", fmt.Errorf("unknown split %q", value)
	}
}

// StricterSplit returns whichever split ranks higher.
func StricterSplit(a, b Split) Split {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Disposition is the reconciliation decision for one record.
type Disposition string

const (
	// DispositionUnset marks a record not yet seen by the resolver.
	DispositionUnset Disposition = ""
	// KeepOriginal keeps the record's source bytes as-is.
	KeepOriginal Disposition = "keep_original"
	// KeepAsSegment keeps the record but requires trimming to its interval.
	KeepAsSegment Disposition = "keep_as_segment"
	// DiscardDuplicate removes the record from all downstream output.
	DiscardDuplicate Disposition = "discard_duplicate"
)

// Key identifies a record globally across both corpora.
type Key struct {
	Source     Source
	InstanceID string
}

func (k Key) String() string {
	return string(k.Source) + ":" + k.InstanceID
}

// Instance is one labeled video segment from either source corpus.
//
// StartTime/EndTime are seconds into the source video. HasInterval false
// means the record covers the whole video. FPS is zero when the source
// corpus did not report a frame rate.
type Instance struct {
	InstanceID    string
	Source        Source
	LabelText     string
	URL           string
	HasInterval   bool
	StartTime     float64
	EndTime       float64
	FPS           float64
	OriginalSplit Split
	// LocalPath points at already-fetched bytes, empty when nothing has
	// been downloaded yet.
	LocalPath string
}

// Key returns the record's global identity.
func (r Instance) Key() Key {
	return Key{Source: r.Source, InstanceID: r.InstanceID}
}

// Duration returns the interval length in seconds, zero for whole-video
// records.
func (r Instance) Duration() float64 {
	if !r.HasInterval {
		return 0
	}
	return r.EndTime - r.StartTime
}

// TrivialInterval reports whether the record's interval is effectively the
// whole video: either no interval at all, or one starting within tol of
// zero with an open end.
func (r Instance) TrivialInterval(tol float64) bool {
	if !r.HasInterval {
		return true
	}
	return r.StartTime <= tol && r.EndTime <= 0
}

// OverlapEntry links one WLASL record and one MS-ASL record that share a
// video URL. Interval fields describe the MS-ASL side's segment.
type OverlapEntry struct {
	URL           string
	WLASLID       string
	WLASLLabel    string
	WLASLSplit    Split
	MSASLID       string
	MSASLLabel    string
	MSASLSplit    Split
	MSASLStart    float64
	MSASLEnd      float64
	MSASLInterval bool
}

// WLASLKey returns the WLASL-side record key.
func (e OverlapEntry) WLASLKey() Key {
	return Key{Source: SourceWLASL, InstanceID: e.WLASLID}
}

// MSASLKey returns the MS-ASL-side record key.
func (e OverlapEntry) MSASLKey() Key {
	return Key{Source: SourceMSASL, InstanceID: e.MSASLID}
}

// MetadataRow is one line of the final output table. Created once after
// filename and split assignment, immutable afterwards.
type MetadataRow struct {
	InstanceID    string
	SourceDataset Source
	LabelText     string
	VideoFilename string
	FinalSplit    Split
	URL           string
}

// Index builds a key-to-record lookup over a flat collection.
func Index(instances []Instance) map[Key]Instance {
	idx := make(map[Key]Instance, len(instances))
	for _, rec := range instances {
		idx[rec.Key()] = rec
	}
	return idx
}
