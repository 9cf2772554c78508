package manifest

import "time"

// Plan item status values.
const (
	PlanPending = "pending"
	PlanDone    = "done"
	PlanFailed  = "failed"
	PlanSkipped = "skipped"
)

// Run summarizes one reconciliation pass.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Seed          int64
	WLASLTotal    int
	MSASLTotal    int
	Discarded     int
	Moved         int
	TargetRatio   string
	AchievedRatio string
}

// RecordRow is the persisted outcome for one record: its disposition, final
// split, and assigned filename.
type RecordRow struct {
	Source        string
	InstanceID    string
	LabelText     string
	URL           string
	OriginalSplit string
	Disposition   string
	FinalSplit    string
	Locked        bool
	VideoFilename string
}

// DiscardRow is one entry of the discard report.
type DiscardRow struct {
	Source     string
	InstanceID string
	URL        string
	Reason     string
}

// WarningRow is a run diagnostic surfaced to the operator.
type WarningRow struct {
	Kind   string
	Detail string
}

// PlanItem is one unit of video processing work.
type PlanItem struct {
	VideoFilename string
	Source        string
	InstanceID    string
	Kind          string
	SourcePath    string
	URL           string
	HasFrames     bool
	StartFrame    int
	EndFrame      int
	HasTimes      bool
	StartSeconds  float64
	EndSeconds    float64
	Status        string
	Error         string
}

// MetadataRow is one line of the exported final metadata table.
type MetadataRow struct {
	Source        string
	InstanceID    string
	LabelText     string
	VideoFilename string
	FinalSplit    string
	URL           string
}

// GlobalID returns the globally unique record identifier used for sorting
// and export.
func (m MetadataRow) GlobalID() string {
	return m.Source + ":" + m.InstanceID
}
