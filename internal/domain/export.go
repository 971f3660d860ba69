package domain

// GroupSpec describes an optional parent issue used to cluster exported
// stories. When Create is false the stories are exported without a parent.
type GroupSpec struct {
	Create      bool
	Name        string
	Description string
}

// IssueRef is a reference to an issue created in the external tracker.
// The tracker owns the issue; this is only a handle to it.
type IssueRef struct {
	Key string `json:"key"`
	URL string `json:"url,omitempty"`
}

// OutcomeStatus represents the terminal state of a single story export
type OutcomeStatus string

const (
	OutcomeCreated      OutcomeStatus = "created"
	OutcomeFailed       OutcomeStatus = "failed"
	OutcomeNotAttempted OutcomeStatus = "not_attempted"
)

// Outcome is the per-story result of an export attempt. Index refers to the
// story's position in the export request, so callers can retry exactly the
// failed subset.
type Outcome struct {
	Index     int           `json:"index"`
	Status    OutcomeStatus `json:"status"`
	Issue     *IssueRef     `json:"issue,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// ExportStatus represents the overall result of an export run
type ExportStatus string

const (
	ExportAllSucceeded   ExportStatus = "all_succeeded"
	ExportPartialFailure ExportStatus = "partial_failure"
	ExportGroupFailed    ExportStatus = "group_failed"
)

// ExportResult aggregates the outcome of one export run. Outcomes is always
// index-aligned with the input stories, except for the group-failed
// short-circuit where it is empty.
type ExportResult struct {
	Status       ExportStatus `json:"status"`
	Group        *IssueRef    `json:"group,omitempty"`
	Outcomes     []Outcome    `json:"outcomes"`
	Exported     int          `json:"total_exported"`
	Failed       int          `json:"total_failed"`
	NotAttempted int          `json:"total_not_attempted"`
}

// Tally recomputes the aggregate counters and overall status from Outcomes.
// GroupFailed results are never re-tallied; that status is terminal.
func (r *ExportResult) Tally() {
	r.Exported, r.Failed, r.NotAttempted = 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeCreated:
			r.Exported++
		case OutcomeFailed:
			r.Failed++
		case OutcomeNotAttempted:
			r.NotAttempted++
		}
	}

	if r.Status == ExportGroupFailed {
		return
	}
	if r.Exported == len(r.Outcomes) {
		r.Status = ExportAllSucceeded
	} else {
		r.Status = ExportPartialFailure
	}
}
