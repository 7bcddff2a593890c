// Package autopilot runs application batches: it picks unattempted jobs,
// prepares a resume and drafted answers for each, and fills and submits the
// application form when asked to.
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/metrics"
	"github.com/jonathan/applypilot/internal/navigation"
	"github.com/jonathan/applypilot/internal/submission"
	"github.com/jonathan/applypilot/internal/tracker"
	"github.com/jonathan/applypilot/internal/types"
)

// DefaultFailureDelay is the pause after a failed job.
const DefaultFailureDelay = time.Second

// NoJobsNote is reported when selection returns nothing.
const NoJobsNote = "No unapplied jobs available"

// ProfileStore reads the applicant profile and the experience bank.
type ProfileStore interface {
	GetProfile(ctx context.Context, id int64) (*types.ApplicantProfile, error)
	ListExperienceFacts(ctx context.Context) ([]types.ExperienceFact, error)
}

// JobStore looks up a single job and its recorded attempts.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (*types.JobPosting, error)
	ListAttempts(ctx context.Context, jobID int64) ([]types.Attempt, error)
}

// AttemptRecorder persists one attempt per job.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt *types.Attempt) error
}

// JobSelector picks the jobs of one batch and releases whatever it holds afterwards.
type JobSelector interface {
	Select(ctx context.Context, limit int, excludeAttempted bool) ([]types.JobPosting, error)
	Release(ctx context.Context) error
}

// SelectorFactory returns a selector owned by the given run.
type SelectorFactory func(runID string) JobSelector

// DescriptionFetcher returns the cleaned description text of a posting.
type DescriptionFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ResumeBuilder renders a resume tailored to a job description and returns its path.
type ResumeBuilder interface {
	Build(ctx context.Context, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (string, error)
}

// AnswerDrafter drafts one answer per prompt.
type AnswerDrafter interface {
	DraftAnswers(ctx context.Context, prompts []types.FormPrompt, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (types.DraftedAnswers, error)
}

// FormNavigator brings a page to a posting's application form.
type FormNavigator interface {
	Resolve(ctx context.Context, page browser.Page, postingURL, orgSlug string) navigation.Resolution
}

// PromptDiscoverer lists the long-answer prompts on the current page.
type PromptDiscoverer interface {
	Discover(ctx context.Context, page browser.Page) ([]types.FormPrompt, error)
}

// FormSubmitter fills the current form and clicks submit.
type FormSubmitter interface {
	FillAndSubmit(ctx context.Context, page browser.Page, req submission.Request) (*types.SubmissionOutcome, error)
}

// OutcomeLog is the human-readable record of leads and application outcomes.
type OutcomeLog interface {
	AppendApplication(ctx context.Context, row tracker.Row) (string, error)
	AppendLeads(ctx context.Context, leads []tracker.Lead) (string, error)
}

// Deps are the collaborators a Runner drives. Descriptions, Resumes, Log and
// Metrics are optional; Jobs is needed only by ApplyJob.
type Deps struct {
	Profiles     ProfileStore
	Jobs         JobStore
	Attempts     AttemptRecorder
	NewSelector  SelectorFactory
	Descriptions DescriptionFetcher
	Resumes      ResumeBuilder
	Drafter      AnswerDrafter
	Launcher     browser.Launcher
	Navigator    FormNavigator
	Discoverer   PromptDiscoverer
	Submitter    FormSubmitter
	Log          OutcomeLog
	Metrics      *metrics.Recorder
}

// ProgressEvent is emitted as a batch advances.
type ProgressEvent struct {
	RunID   string       `json:"run_id"`
	Step    string       `json:"step"`
	JobID   int64        `json:"job_id,omitempty"`
	Status  types.Status `json:"status,omitempty"`
	Message string       `json:"message"`
}

// ProgressCallback receives progress events.
type ProgressCallback func(event ProgressEvent)

// Options configures a Runner
type Options struct {
	// LockPath is the cross-process batch lock file. Empty disables it.
	LockPath     string
	FailureDelay time.Duration
	Verbose      bool
	OnProgress   ProgressCallback
	Now          func() time.Time
	// Sleep paces jobs; it returns early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Runner executes batches one at a time.
type Runner struct {
	deps Deps
	opts Options
	mu   sync.Mutex
}

// New returns a Runner.
func New(deps Deps, opts Options) *Runner {
	if opts.FailureDelay <= 0 {
		opts.FailureDelay = DefaultFailureDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Runner{deps: deps, opts: opts}
}

// batch is the state shared by every job of one run.
type batch struct {
	runID    string
	req      types.BatchRequest
	profile  *types.ApplicantProfile
	facts    []types.ExperienceFact
	progress ProgressCallback
}

// Run executes one batch. Precondition failures (invalid request, unknown
// profile, another batch running, store errors before selection) are returned
// as errors; every per-job failure is reported in the result instead.
func (r *Runner) Run(ctx context.Context, req types.BatchRequest) (*types.BatchResult, error) {
	return r.run(ctx, req, r.opts.OnProgress)
}

// RunWithProgress is Run with an extra callback for this batch only.
func (r *Runner) RunWithProgress(ctx context.Context, req types.BatchRequest, fn ProgressCallback) (*types.BatchResult, error) {
	progress := fn
	if r.opts.OnProgress != nil {
		progress = func(e ProgressEvent) {
			r.opts.OnProgress(e)
			if fn != nil {
				fn(e)
			}
		}
	}
	return r.run(ctx, req, progress)
}

func (r *Runner) run(ctx context.Context, req types.BatchRequest, progress ProgressCallback) (*types.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch request: %w", err)
	}

	unlock, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	started := r.opts.Now()

	profile, facts, err := r.loadApplicant(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}

	b := &batch{runID: uuid.New().String(), req: req, profile: profile, facts: facts, progress: progress}
	selector := r.deps.NewSelector(b.runID)
	jobs, err := selector.Select(ctx, req.Limit, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer func() {
		if err := selector.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[AUTOPILOT] Failed to release claims for run %s: %v", b.runID, err)
		}
	}()

	result := &types.BatchResult{RunID: b.runID, Picked: len(jobs), Submit: req.Submit, Results: []types.SubmissionOutcome{}}
	b.emit(ProgressEvent{RunID: b.runID, Step: "select", Message: fmt.Sprintf("picked %d jobs", len(jobs))})
	log.Printf("[AUTOPILOT] Run %s picked %d jobs (submit=%t, resume=%s)", b.runID, len(jobs), req.Submit, req.ResumeMode)

	if len(jobs) == 0 {
		result.Note = NoJobsNote
		result.ComputeOK()
		r.deps.Metrics.Batch("empty", r.opts.Now().Sub(started))
		return result, nil
	}

	result.LeadsLog = r.appendLeads(ctx, jobs)

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			for _, rest := range jobs[i:] {
				out := baseOutcome(rest)
				out.Status = types.StatusFailed
				out.Error = fmt.Sprintf("batch canceled: %v", err)
				result.Results = append(result.Results, out)
			}
			break
		}

		b.emit(ProgressEvent{RunID: b.runID, Step: "job_start", JobID: job.ID, Message: job.URL})
		out, logPath := r.applyOne(ctx, b, job)
		if logPath != "" {
			result.OutcomeLog = logPath
		}
		result.Results = append(result.Results, out)
		b.emit(ProgressEvent{RunID: b.runID, Step: "job_done", JobID: job.ID, Status: out.Status, Message: out.Error})

		if i == len(jobs)-1 {
			break
		}
		delay := time.Duration(req.DelaySeconds * float64(time.Second))
		if out.Status == types.StatusFailed {
			delay = r.opts.FailureDelay
		}
		_ = r.opts.Sleep(ctx, delay)
	}

	label := "failed"
	if result.ComputeOK() {
		label = "ok"
	}
	r.deps.Metrics.Batch(label, r.opts.Now().Sub(started))
	counts := result.Counts()
	log.Printf("[AUTOPILOT] Run %s finished: ok=%t submitted=%d unconfirmed=%d previewed=%d failed=%d",
		b.runID, result.OK, counts[types.StatusSubmitted], counts[types.StatusSubmittedUnconfirmed],
		counts[types.StatusPreviewed], counts[types.StatusFailed])
	b.emit(ProgressEvent{RunID: b.runID, Step: "batch_done", Message: fmt.Sprintf("ok=%t", result.OK)})
	return result, nil
}

// ApplyJob runs the full sequence for one chosen job: navigate, discover,
// draft, and fill and submit when req.Submit is set. It shares the batch lock,
// so it cannot overlap a running batch. Submitting a job whose submit control
// was already clicked once is refused with ErrAlreadySubmitted.
func (r *Runner) ApplyJob(ctx context.Context, req types.ApplyRequest) (*types.ApplyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid apply request: %w", err)
	}
	if r.deps.Jobs == nil {
		return nil, errors.New("no job store configured")
	}

	unlock, err := r.acquire()
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := r.deps.Jobs.GetJob(ctx, req.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: id %d", ErrJobNotFound, req.JobID)
	}
	if req.Submit {
		attempts, err := r.deps.Jobs.ListAttempts(ctx, job.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempts: %w", err)
		}
		for _, a := range attempts {
			if a.SubmittedAt != nil {
				return nil, fmt.Errorf("%w: job %d (run %s)", ErrAlreadySubmitted, job.ID, a.RunID)
			}
		}
	}

	profile, facts, err := r.loadApplicant(ctx, req.ProfileID)
	if err != nil {
		return nil, err
	}

	batchReq := types.BatchRequest{ProfileID: req.ProfileID, Limit: 1, ResumeMode: req.ResumeMode, Submit: req.Submit}
	b := &batch{runID: uuid.New().String(), req: batchReq, profile: profile, facts: facts, progress: r.opts.OnProgress}
	log.Printf("[AUTOPILOT] Run %s applying to job %d (submit=%t, resume=%s)", b.runID, job.ID, req.Submit, req.ResumeMode)

	b.emit(ProgressEvent{RunID: b.runID, Step: "job_start", JobID: job.ID, Message: job.URL})
	out, logPath := r.applyOne(ctx, b, *job)
	b.emit(ProgressEvent{RunID: b.runID, Step: "job_done", JobID: job.ID, Status: out.Status, Message: out.Error})

	return &types.ApplyResult{
		RunID:      b.runID,
		Submit:     req.Submit,
		OK:         out.Status.Succeeded(),
		Outcome:    out,
		OutcomeLog: logPath,
	}, nil
}

// loadApplicant reads the profile and the experience bank.
func (r *Runner) loadApplicant(ctx context.Context, profileID int64) (*types.ApplicantProfile, []types.ExperienceFact, error) {
	profile, err := r.deps.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, nil, fmt.Errorf("%w: id %d", ErrProfileNotFound, profileID)
	}
	facts, err := r.deps.Profiles.ListExperienceFacts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load experience facts: %w", err)
	}
	return profile, facts, nil
}

// acquire takes the in-process and cross-process batch locks.
func (r *Runner) acquire() (func(), error) {
	if !r.mu.TryLock() {
		return nil, ErrBatchInProgress
	}
	if r.opts.LockPath == "" {
		return r.mu.Unlock, nil
	}

	if err := os.MkdirAll(filepath.Dir(r.opts.LockPath), 0755); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	lock := flock.New(r.opts.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire batch lock: %w", err)
	}
	if !ok {
		r.mu.Unlock()
		return nil, ErrBatchInProgress
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("[AUTOPILOT] Failed to release batch lock: %v", err)
		}
		r.mu.Unlock()
	}, nil
}

func (r *Runner) appendLeads(ctx context.Context, jobs []types.JobPosting) string {
	if r.deps.Log == nil {
		return ""
	}
	leads := make([]tracker.Lead, len(jobs))
	for i, j := range jobs {
		leads[i] = tracker.Lead{Company: j.Company, Title: j.Title, JobURL: j.URL, ATSType: j.ATS.String(), ImportedAt: j.CreatedAt}
	}
	path, err := r.deps.Log.AppendLeads(ctx, leads)
	if err != nil {
		log.Printf("[AUTOPILOT] Failed to append leads: %v", err)
		return ""
	}
	return path
}

// jobRun tracks one job through applyOne.
type jobRun struct {
	job           types.JobPosting
	out           types.SubmissionOutcome
	resumeVersion string
	recorded      bool
	logPath       string
}

// applyOne processes a single job and never returns an error: failures and
// panics become a failed outcome. The second return value is the outcome log
// path when a row was appended.
func (r *Runner) applyOne(ctx context.Context, b *batch, job types.JobPosting) (out types.SubmissionOutcome, logPath string) {
	started := r.opts.Now()
	jr := &jobRun{job: job, out: baseOutcome(job)}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[AUTOPILOT] Job %d panicked: %v", job.ID, rec)
			r.fail(ctx, b, jr, fmt.Errorf("panic: %v", rec))
		}
		r.deps.Metrics.Job(job.ATS.String(), string(jr.out.Status), r.opts.Now().Sub(started))
		out, logPath = jr.out, jr.logPath
	}()

	if err := r.apply(ctx, b, jr); err != nil {
		r.fail(ctx, b, jr, err)
	}
	return jr.out, jr.logPath
}

func (r *Runner) apply(ctx context.Context, b *batch, jr *jobRun) error {
	job := jr.job
	jdText := r.description(ctx, job)

	resumePath, err := r.resume(ctx, b, jr, jdText)
	if err != nil {
		return &JobError{Step: "resume", Cause: err}
	}
	jr.out.ResumePath = resumePath

	var page browser.Page
	if job.ATS.Supported() {
		session, err := r.deps.Launcher.Launch(ctx)
		if err != nil {
			return &JobError{Step: "browser", Cause: err}
		}
		defer func() {
			if err := session.Close(); err != nil {
				log.Printf("[AUTOPILOT] Failed to close browser for job %d: %v", job.ID, err)
			}
		}()
		page = session.Page()

		res := r.deps.Navigator.Resolve(ctx, page, job.URL, job.OrgSlug())
		jr.out.FormStrategy = res.Strategy
		r.deps.Metrics.Navigation(res.Strategy)
		if res.Strategy == navigation.StrategyNone {
			return &JobError{Step: "navigate", Cause: ErrFormNotLoaded}
		}
		prompts, err := r.deps.Discoverer.Discover(ctx, page)
		if err != nil {
			log.Printf("[AUTOPILOT] Discovery failed for job %d: %v", job.ID, err)
		}
		jr.out.Prompts = prompts
		r.deps.Metrics.Prompts(len(prompts))
	}

	answers, err := r.deps.Drafter.DraftAnswers(ctx, jr.out.Prompts, b.profile, b.facts, jdText)
	if err != nil {
		return &JobError{Step: "draft", Cause: err}
	}
	jr.out.Answers = answers

	if !b.req.Submit {
		jr.out.Status = types.StatusPreviewed
		r.record(ctx, b, jr)
		return nil
	}
	if !job.ATS.Supported() {
		return &UnsupportedATSError{Family: job.ATS}
	}

	sub, err := r.deps.Submitter.FillAndSubmit(ctx, page, submission.Request{
		Identity:   b.profile.Identity(),
		ResumePath: resumePath,
		Prompts:    jr.out.Prompts,
		Answers:    answers,
		Tag:        fmt.Sprintf("%d", job.ID),
	})
	if err != nil {
		return &JobError{Step: "fill", Cause: err}
	}
	jr.out.Status = sub.Status
	jr.out.ConfirmationText = sub.ConfirmationText
	jr.out.Fields = sub.Fields
	jr.out.Clicked = sub.Clicked
	jr.out.Screenshots = sub.Screenshots
	jr.out.Error = sub.Error
	for _, f := range sub.Fields {
		r.deps.Metrics.FieldFill(fillMethod(f))
	}

	r.record(ctx, b, jr)
	r.appendOutcome(ctx, jr)
	return nil
}

func (r *Runner) description(ctx context.Context, job types.JobPosting) string {
	if r.deps.Descriptions == nil {
		return ""
	}
	text, err := r.deps.Descriptions.Fetch(ctx, job.URL)
	if err != nil {
		if r.opts.Verbose {
			log.Printf("[AUTOPILOT] Continuing without description for job %d: %v", job.ID, err)
		}
		return ""
	}
	return text
}

func (r *Runner) resume(ctx context.Context, b *batch, jr *jobRun, jdText string) (string, error) {
	if b.req.ResumeMode == types.ResumeModeStatic && b.profile.ResumePath != "" {
		jr.resumeVersion = types.ResumeVersionStatic
		return b.profile.ResumePath, nil
	}
	jr.resumeVersion = types.ResumeVersionAI
	if r.deps.Resumes == nil {
		return "", errors.New("no resume builder configured")
	}
	return r.deps.Resumes.Build(ctx, b.profile, b.facts, jdText)
}

// fail marks the job failed. An attempt is recorded only once a submit click
// happened, so a job that never reached the employer stays selectable.
func (r *Runner) fail(ctx context.Context, b *batch, jr *jobRun, err error) {
	jr.out.Status = types.StatusFailed
	jr.out.Error = err.Error()
	log.Printf("[AUTOPILOT] Job %d failed: %v", jr.job.ID, err)
	if jr.out.Clicked && !jr.recorded {
		r.record(ctx, b, jr)
	}
}

func (r *Runner) record(ctx context.Context, b *batch, jr *jobRun) {
	if r.deps.Attempts == nil {
		return
	}
	now := r.opts.Now().UTC()
	attempt := &types.Attempt{
		JobID:         jr.job.ID,
		ProfileID:     b.profile.ID,
		RunID:         b.runID,
		Status:        jr.out.Status,
		Confirmation:  jr.out.ConfirmationText,
		Error:         jr.out.Error,
		ResumeVersion: jr.resumeVersion,
		Notes:         jr.out.FormStrategy,
		CreatedAt:     now,
	}
	if jr.out.Clicked {
		attempt.SubmittedAt = &now
	}
	if err := r.deps.Attempts.RecordAttempt(context.WithoutCancel(ctx), attempt); err != nil {
		log.Printf("[AUTOPILOT] Failed to record attempt for job %d: %v", jr.job.ID, err)
		return
	}
	jr.recorded = true
}

func (r *Runner) appendOutcome(ctx context.Context, jr *jobRun) {
	if r.deps.Log == nil {
		return
	}
	path, err := r.deps.Log.AppendApplication(ctx, tracker.Row{
		Company:            jr.job.Company,
		Role:               jr.job.Title,
		DateApplied:        r.opts.Now(),
		JobURL:             jr.job.URL,
		Source:             jr.job.Source,
		ATSType:            jr.job.ATS.String(),
		ConfirmationNumber: jr.out.ConfirmationText,
		Status:             string(jr.out.Status),
		ResumeVersion:      jr.resumeVersion,
		Notes:              jr.out.Error,
	})
	if err != nil {
		log.Printf("[AUTOPILOT] Failed to append outcome for job %d: %v", jr.job.ID, err)
		return
	}
	jr.logPath = path
}

func (b *batch) emit(event ProgressEvent) {
	if b.progress != nil {
		b.progress(event)
	}
}

func baseOutcome(job types.JobPosting) types.SubmissionOutcome {
	return types.SubmissionOutcome{
		JobID:   job.ID,
		Company: job.Company,
		Title:   job.Title,
		URL:     job.URL,
		ATS:     job.ATS,
		Status:  types.StatusFailed,
	}
}

func fillMethod(f types.FieldDiagnostic) string {
	switch {
	case f.Error != "":
		return "failed"
	case f.Typed:
		return "typed"
	default:
		return "fill"
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
