package autopilot

import (
	"errors"
	"fmt"

	"github.com/jonathan/applypilot/internal/types"
)

// ErrBatchInProgress is returned when another batch holds the batch lock.
var ErrBatchInProgress = errors.New("a batch is already running")

// ErrProfileNotFound is returned when the requested applicant profile does not exist.
var ErrProfileNotFound = errors.New("applicant profile not found")

// ErrJobNotFound is returned when ApplyJob is asked for an unknown job.
var ErrJobNotFound = errors.New("job not found")

// ErrAlreadySubmitted refuses a second submission of the same job.
var ErrAlreadySubmitted = errors.New("job was already submitted")

// ErrFormNotLoaded fails a job when no page of the posting could be loaded.
var ErrFormNotLoaded = errors.New("application form could not be loaded")

// UnsupportedATSError fails a job whose form family has no connector.
type UnsupportedATSError struct {
	Family types.ATSFamily
}

func (e *UnsupportedATSError) Error() string {
	return fmt.Sprintf("ATS %s not supported yet", e.Family)
}

// JobError wraps a per-job failure with the step that produced it.
type JobError struct {
	Step  string
	Cause error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Cause)
}

func (e *JobError) Unwrap() error {
	return e.Cause
}
