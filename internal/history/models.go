package history

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial marks a finished run where at least one target failed.
	RunPartial RunStatus = "partial"
)

// Run is one invocation of the importer over a manifest.
type Run struct {
	ID         string
	Manifest   string
	Status     RunStatus
	Targets    int
	Failed     int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Result is the ledger row for one output path of one target. Kind is "ok"
// for written outputs, otherwise the failure class.
type Result struct {
	RunID      string
	Item       int
	Target     int
	Path       string
	Kind       string
	Source     string
	Error      string
	Digest     string
	Frames     int
	Channels   int
	SampleRate int
	LoopStart  int
	LoopEnd    int
	CreatedAt  time.Time
}

// OK reports whether the output was written.
func (r Result) OK() bool { return r.Kind == "ok" }
