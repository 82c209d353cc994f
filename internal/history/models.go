package history

import "time"

// Outcome is the result of one item in a run.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// RunStart describes a run as it begins.
type RunStart struct {
	ID         string
	StartedAt  time.Time
	PromptName string
	Provider   string
	InputCount int
}

// RunTotals is written when a run ends.
type RunTotals struct {
	FinishedAt  time.Time
	ArchivePath string
	Processed   int
	Skipped     int
	Failed      int
	// AbortReason is set when the run stopped before the work list was done.
	AbortReason string
}

// Run is a stored run row.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  *time.Time
	PromptName  string
	Provider    string
	InputCount  int
	ArchivePath string
	Processed   int
	Skipped     int
	Failed      int
	AbortReason string
}

// Finished reports whether FinishRun was recorded for the run.
func (r Run) Finished() bool {
	return r.FinishedAt != nil
}

// Item is one recorded item outcome.
type Item struct {
	RunID      string
	Position   int
	ContentID  string
	SourceURL  string
	Title      string
	Outcome    Outcome
	OutputPath string
	Error      string
	ErrorKind  string
	Duration   time.Duration
	RecordedAt time.Time
}
