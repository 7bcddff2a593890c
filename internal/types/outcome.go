// Package types provides type definitions for structured data used throughout the applypilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Status is the terminal state of one job in a batch
type Status string

const (
	// StatusPreviewed means answers were drafted but nothing was submitted
	StatusPreviewed Status = "previewed"
	// StatusSubmitted means a submit click happened and a confirmation phrase was seen
	StatusSubmitted Status = "submitted"
	// StatusSubmittedUnconfirmed means a submit click happened without a detected confirmation
	StatusSubmittedUnconfirmed Status = "submitted_unconfirmed"
	// StatusFailed means the job hit an error before completing
	StatusFailed Status = "failed"
)

// Succeeded reports whether the status counts toward a batch's ok flag.
func (s Status) Succeeded() bool {
	switch s {
	case StatusPreviewed, StatusSubmitted, StatusSubmittedUnconfirmed:
		return true
	default:
		return false
	}
}

// Submitted reports whether a submit control was clicked.
func (s Status) Submitted() bool {
	return s == StatusSubmitted || s == StatusSubmittedUnconfirmed
}

// FieldDiagnostic records what happened when one field was filled
type FieldDiagnostic struct {
	Key     string `json:"key"`
	Ordinal int    `json:"ordinal,omitempty"`
	Chars   int    `json:"chars,omitempty"`
	Typed   bool   `json:"typed,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FieldFillFailed is the diagnostic marker for a field neither fill nor typing could write.
const FieldFillFailed = "could_not_fill"

// SubmissionOutcome is the per-job result of a batch run
type SubmissionOutcome struct {
	JobID            int64             `json:"job_id"`
	Company          string            `json:"company,omitempty"`
	Title            string            `json:"title,omitempty"`
	URL              string            `json:"url"`
	ATS              ATSFamily         `json:"ats_type,omitempty"`
	Status           Status            `json:"status"`
	ConfirmationText string            `json:"confirmation,omitempty"`
	Error            string            `json:"error,omitempty"`
	ResumePath       string            `json:"resume_pdf,omitempty"`
	FormStrategy     string            `json:"form_strategy,omitempty"`
	Prompts          []FormPrompt      `json:"found_questions,omitempty"`
	Answers          DraftedAnswers    `json:"draft_answers,omitempty"`
	Fields           []FieldDiagnostic `json:"filled,omitempty"`
	Clicked          bool              `json:"clicked,omitempty"`
	Screenshots      map[string]string `json:"shots,omitempty"`
}

// BatchResult aggregates the outcomes of one batch invocation
type BatchResult struct {
	RunID      string              `json:"run_id"`
	Picked     int                 `json:"picked"`
	Submit     bool                `json:"submit"`
	OK         bool                `json:"ok"`
	Note       string              `json:"note,omitempty"`
	Results    []SubmissionOutcome `json:"results"`
	LeadsLog   string              `json:"leads_xlsx,omitempty"`
	OutcomeLog string              `json:"applications_xlsx,omitempty"`
}

// ApplyResult is the outcome of applying to one chosen job.
type ApplyResult struct {
	RunID      string            `json:"run_id"`
	Submit     bool              `json:"submit"`
	OK         bool              `json:"ok"`
	Outcome    SubmissionOutcome `json:"outcome"`
	OutcomeLog string            `json:"applications_xlsx,omitempty"`
}

// ComputeOK sets OK to true iff at least one outcome succeeded.
func (b *BatchResult) ComputeOK() bool {
	b.OK = false
	for _, r := range b.Results {
		if r.Status.Succeeded() {
			b.OK = true
			break
		}
	}
	return b.OK
}

// Counts tallies outcomes by status.
func (b *BatchResult) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, r := range b.Results {
		counts[r.Status]++
	}
	return counts
}
