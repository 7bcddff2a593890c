package types

import "time"

// Attempt is the persisted record of one job attempt. Any attempt row excludes
// the job from future selection.
type Attempt struct {
	JobID         int64      `json:"job_id"`
	ProfileID     int64      `json:"profile_id"`
	RunID         string     `json:"run_id"`
	Status        Status     `json:"status"`
	Confirmation  string     `json:"confirmation,omitempty"`
	Error         string     `json:"error,omitempty"`
	ResumeVersion string     `json:"resume_version,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Resume versions recorded with attempts
const (
	ResumeVersionStatic = "static"
	ResumeVersionAI     = "ai-v1"
)
