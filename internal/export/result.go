package export

import "time"

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means every visited item reconciled cleanly.
	StatusCompleted Status = "completed"

	// StatusPartial means the run finished but some items failed or
	// were skipped; Failures holds the detail.
	StatusPartial Status = "completed_with_failures"

	// StatusFailed means the run could not proceed at all, either the
	// inventory was unreachable or the shelf/book root could not be
	// established.
	StatusFailed Status = "failed"
)

// Failure records one item that did not reconcile. Cancelled items are
// recorded here too, flagged so callers can tell them from errors.
type Failure struct {
	Level     string `json:"level"` // shelf, book, chapter, page
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Result is the outcome of one run. It is always produced, even when
// the run fails early.
type Result struct {
	RunID        string    `json:"run_id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Status       Status    `json:"status"`
	BranchFilter string    `json:"branch_filter,omitempty"`
	Locations    int       `json:"locations"`
	Branches     int       `json:"branches"`
	Chapters     int       `json:"chapters"`
	PagesCreated int       `json:"pages_created"`
	PagesUpdated int       `json:"pages_updated"`
	Cancelled    bool      `json:"cancelled,omitempty"`
	Failures     []Failure `json:"failures,omitempty"`
	Err          string    `json:"error,omitempty"`
	Duration     float64   `json:"duration_seconds"`
}

// failureCount returns the number of genuine failures, not counting
// cancelled items.
func (r *Result) failureCount() int {
	n := 0
	for _, f := range r.Failures {
		if !f.Cancelled {
			n++
		}
	}
	return n
}

func (r *Result) finalize(now time.Time) {
	r.FinishedAt = now
	r.Duration = now.Sub(r.StartedAt).Seconds()
	if r.Status == StatusFailed {
		return
	}
	if r.failureCount() > 0 {
		r.Status = StatusPartial
	} else {
		r.Status = StatusCompleted
	}
}
