package autosave

import "time"

// Outcome classifies how a commit cycle ended.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	// OutcomeSkipped means nothing was written: the workspace document or the
	// file no longer exists.
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result describes a single read-merge-write cycle.
type Result struct {
	Workspace string
	FileID    string
	Revision  uint64
	Content   string
	Outcome   Outcome
	Reason    string
	Err       error
	Attempts  int
	At        time.Time
}

// Report summarizes the cycles a scheduler has run.
type Report struct {
	Workspace string `json:"workspace"`
	Committed int    `json:"committed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Conflicts int    `json:"conflicts"`
	Pending   int    `json:"pending"`
}
