package naming

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"glossmerge/internal/logging"
	"glossmerge/internal/records"
	"glossmerge/internal/services"
	"glossmerge/internal/textutil"
)

// InstructionKind names the work needed to materialize a record's bytes.
type InstructionKind string

const (
	// CopyLocal copies already-fetched bytes into place unchanged.
	CopyLocal InstructionKind = "copy_local"
	// FetchOnly downloads the whole video; no trimming required.
	FetchOnly InstructionKind = "fetch"
	// FetchAndTrim downloads into a working area, then cuts the segment.
	FetchAndTrim InstructionKind = "fetch_and_trim"
	// TrimLocal cuts the segment out of an existing local file.
	TrimLocal InstructionKind = "trim_local"
)

// Instruction tells the download/trim collaborator how to produce one
// output file. Frame fields are set when the record's frame rate is known;
// otherwise the cut falls back to the time fields. An end of -1 means
// end-of-video.
type Instruction struct {
	Kind       InstructionKind
	SourcePath string
	URL        string

	HasFrames  bool
	StartFrame int
	EndFrame   int

	HasTimes     bool
	StartSeconds float64
	EndSeconds   float64
}

// Assignment pairs one surviving record with its canonical filename and
// processing instruction.
type Assignment struct {
	Record      records.Instance
	Disposition records.Disposition
	Filename    string
	Instruction Instruction
}

// Collision reports two distinct records that mapped to the same filename
// before disambiguation. Renames are silent otherwise, so every occurrence
// is surfaced to the operator.
type Collision struct {
	Filename string
	Kept     records.Key
	Renamed  records.Key
	NewName  string
}

// Plan is the full output of filename assignment.
type Plan struct {
	Assignments []Assignment
	Collisions  []Collision
	// Problems aggregates records that cannot be materialized (no local
	// bytes and no URL); nil when every survivor got an instruction.
	Problems error
}

// Assigner computes canonical filenames and processing instructions.
type Assigner struct {
	logger *slog.Logger
}

// NewAssigner constructs a filename assigner.
func NewAssigner(logger *slog.Logger) *Assigner {
	return &Assigner{logger: logging.NewComponentLogger(logger, "naming")}
}

// Assign walks the surviving records in stable (source, id) order and
// produces one assignment per record. Discarded records are skipped.
// Filenames are guaranteed unique across the returned plan: a collision is
// resolved by suffixing a running counter on the later record in the
// stable order, and every rename is reported.
func (a *Assigner) Assign(survivors []records.Instance, dispositions map[records.Key]records.Disposition) *Plan {
	ordered := make([]records.Instance, len(survivors))
	copy(ordered, survivors)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].InstanceID < ordered[j].InstanceID
	})

	plan := &Plan{}
	taken := make(map[string]records.Key, len(ordered))
	var problems []error

	for _, rec := range ordered {
		disposition := dispositions[rec.Key()]
		if disposition == records.DiscardDuplicate {
			continue
		}

		instruction, err := a.instructionFor(rec, disposition)
		if err != nil {
			problems = append(problems, err)
			continue
		}

		filename := canonicalFilename(rec)
		if first, clash := taken[filename]; clash {
			disambiguated := a.disambiguate(filename, taken)
			plan.Collisions = append(plan.Collisions, Collision{
				Filename: filename,
				Kept:     first,
				Renamed:  rec.Key(),
				NewName:  disambiguated,
			})
			a.logger.Warn("filename collision resolved",
				logging.String("filename", filename),
				logging.String("kept", first.String()),
				logging.String("renamed", rec.Key().String()),
				logging.String("new_name", disambiguated))
			filename = disambiguated
		}
		taken[filename] = rec.Key()

		plan.Assignments = append(plan.Assignments, Assignment{
			Record:      rec,
			Disposition: disposition,
			Filename:    filename,
			Instruction: instruction,
		})
	}

	plan.Problems = errors.Join(problems...)
	return plan
}

// canonicalFilename is deterministic in the record's source tag, instance
// id, and label, so reused ids under different labels never collide.
func canonicalFilename(rec records.Instance) string {
	return fmt.Sprintf("%s_%s_%s.mp4",
		rec.Source.Tag(),
		textutil.SanitizeToken(rec.InstanceID),
		textutil.SanitizeToken(rec.LabelText))
}

// disambiguate appends the smallest counter that frees the name.
func (a *Assigner) disambiguate(filename string, taken map[string]records.Key) string {
	base := filename[:len(filename)-len(".mp4")]
	for counter := 2; ; counter++ {
		candidate := fmt.Sprintf("%s_%d.mp4", base, counter)
		if _, used := taken[candidate]; !used {
			return candidate
		}
	}
}

func (a *Assigner) instructionFor(rec records.Instance, disposition records.Disposition) (Instruction, error) {
	switch disposition {
	case records.KeepOriginal:
		if rec.LocalPath != "" {
			return Instruction{Kind: CopyLocal, SourcePath: rec.LocalPath}, nil
		}
		if rec.URL != "" {
			return Instruction{Kind: FetchOnly, URL: rec.URL}, nil
		}
	case records.KeepAsSegment:
		instruction := Instruction{Kind: FetchAndTrim, URL: rec.URL, SourcePath: rec.LocalPath}
		if rec.LocalPath != "" {
			instruction.Kind = TrimLocal
		} else if rec.URL == "" {
			break
		}
		fillTrimRange(&instruction, rec)
		return instruction, nil
	}
	return Instruction{}, services.Wrap(services.ErrValidation, "naming", "build instruction",
		fmt.Sprintf("record %s has neither local bytes nor a url", rec.Key()), nil)
}

// fillTrimRange prefers an exact frame range when the frame rate is known,
// falling back to a time-based cut otherwise.
func fillTrimRange(instruction *Instruction, rec records.Instance) {
	if rec.FPS > 0 {
		instruction.HasFrames = true
		instruction.StartFrame = int(math.Round(rec.StartTime * rec.FPS))
		if rec.EndTime > 0 {
			instruction.EndFrame = int(math.Round(rec.EndTime * rec.FPS))
		} else {
			instruction.EndFrame = -1
		}
		return
	}
	instruction.HasTimes = true
	instruction.StartSeconds = rec.StartTime
	if rec.EndTime > 0 {
		instruction.EndSeconds = rec.EndTime
	} else {
		instruction.EndSeconds = -1
	}
}
