package cacheindex

import "time"

// Status is the processing state of a single video.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// InterruptedReason is recorded on pending records recovered at load time.
const InterruptedReason = "interrupted"

// Record is the persisted processing state of one video.
type Record struct {
	ContentID     string    `json:"content_id"`
	Status        Status    `json:"status"`
	OutputPath    string    `json:"output_path,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	SourceURL     string    `json:"source_url,omitempty"`
	Title         string    `json:"title,omitempty"`
	PromptName    string    `json:"prompt_name,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Attempts      int       `json:"attempts"`
}

// Meta carries descriptive fields stored alongside a pending record. Empty
// fields keep whatever the record already holds.
type Meta struct {
	SourceURL  string
	Title      string
	PromptName string
}

// Stats summarizes the index by status.
type Stats struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}
