// Package submission fills a discovered application form and submits it.
package submission

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/types"
)

// DefaultSubmitWait bounds the wait for network idle after the submit click.
const DefaultSubmitWait = 15 * time.Second

// ConfirmationPattern matches text shown after a successful submission.
var ConfirmationPattern = regexp.MustCompile(`(?i)thank you|application submitted|confirmation`)

// SubmitControls are probed in order; the first one present is clicked.
var SubmitControls = []browser.Query{
	{CSS: "button", Text: "Submit"},
	{CSS: "button", Text: "Apply"},
	{CSS: `button[type="submit"]`},
	{CSS: `input[type="submit"]`},
}

// ResumeInput is the file input the resume is uploaded to.
var ResumeInput = browser.CSS(`input[type="file"]`)

// identityField lists the selectors probed for one structured identity value.
type identityField struct {
	key     string
	queries []browser.Query
	value   func(types.Identity) string
}

var identityFields = []identityField{
	{
		key: "first_name",
		queries: []browser.Query{
			browser.CSS(`input[name*="first_name" i]`),
			browser.CSS(`input[id*="first_name" i]`),
			browser.CSS(`input[autocomplete="given-name"]`),
		},
		value: func(id types.Identity) string { return id.FirstName },
	},
	{
		key: "last_name",
		queries: []browser.Query{
			browser.CSS(`input[name*="last_name" i]`),
			browser.CSS(`input[id*="last_name" i]`),
			browser.CSS(`input[autocomplete="family-name"]`),
		},
		value: func(id types.Identity) string { return id.LastName },
	},
	{
		key: "email",
		queries: []browser.Query{
			browser.CSS(`input[type="email" i]`),
			browser.CSS(`input[name*="email" i]`),
		},
		value: func(id types.Identity) string { return id.Email },
	},
	{
		key: "phone",
		queries: []browser.Query{
			browser.CSS(`input[type="tel" i]`),
			browser.CSS(`input[name*="phone" i]`),
		},
		value: func(id types.Identity) string { return id.Phone },
	},
}

// Request carries everything needed to fill one form.
type Request struct {
	Identity   types.Identity
	ResumePath string
	// Prompts are the discovery-pass prompts the answers were drafted for.
	Prompts []types.FormPrompt
	Answers types.DraftedAnswers
	// Tag names debug screenshots; usually the job ID.
	Tag string
}

// Options configures a Submitter
type Options struct {
	SubmitWait time.Duration
	// DebugDir, when set, receives before/after submit screenshots.
	DebugDir string
	Verbose  bool
}

// Submitter fills long-answer fields and clicks the submit control.
type Submitter struct {
	discoverer *discovery.Discoverer
	opts       Options
}

// New returns a Submitter. A nil discoverer uses the default resolvers.
func New(discoverer *discovery.Discoverer, opts Options) *Submitter {
	if discoverer == nil {
		discoverer = discovery.New(opts.Verbose)
	}
	if opts.SubmitWait <= 0 {
		opts.SubmitWait = DefaultSubmitWait
	}
	return &Submitter{discoverer: discoverer, opts: opts}
}

// FillAndSubmit fills the form on page and clicks the first submit control.
// The outcome status is previewed when no control exists, submitted when a
// confirmation phrase appears afterwards and submitted_unconfirmed otherwise.
// Missing fields and fill failures are recorded as diagnostics, never errors.
// An error is returned only when the page cannot be inspected at all, which
// always happens before any click.
func (s *Submitter) FillAndSubmit(ctx context.Context, page browser.Page, req Request) (*types.SubmissionOutcome, error) {
	out := &types.SubmissionOutcome{Status: types.StatusPreviewed, ResumePath: req.ResumePath}

	if req.ResumePath != "" {
		s.uploadResume(ctx, page, req.ResumePath, out)
	}
	s.fillIdentity(ctx, page, req.Identity, out)

	fields, err := s.discoverer.Fields(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to locate answer fields: %w", err)
	}
	byOrdinal := make(map[int]types.FormPrompt, len(req.Prompts))
	for _, p := range req.Prompts {
		byOrdinal[p.Ordinal] = p
	}
	for _, f := range fields {
		key, answer := s.answerFor(f, byOrdinal, req)
		out.Fields = append(out.Fields, s.fillField(ctx, page, discovery.FieldQuery(f.Ordinal), key, f.Ordinal, answer))
	}

	s.screenshot(ctx, page, req.Tag, "before_submit", out)

	control, found := s.findSubmitControl(ctx, page)
	if !found {
		if s.opts.Verbose {
			log.Printf("[SUBMIT] No submit control found; leaving form unsubmitted")
		}
		return out, nil
	}
	if err := page.Click(ctx, control); err != nil {
		out.Error = fmt.Sprintf("submit click failed: %v", err)
		log.Printf("[SUBMIT] Click on %s failed: %v", control, err)
		return out, nil
	}
	out.Clicked = true

	if err := page.WaitIdle(ctx, s.opts.SubmitWait); err != nil {
		log.Printf("[SUBMIT] Continuing after idle wait: %v", err)
	}
	s.screenshot(ctx, page, req.Tag, "after_submit", out)

	text, err := page.VisibleTextMatching(ctx, ConfirmationPattern)
	if err != nil {
		log.Printf("[SUBMIT] Could not read confirmation text: %v", err)
	}
	out.ConfirmationText = ExtractConfirmation(text)
	if out.ConfirmationText != "" {
		out.Status = types.StatusSubmitted
	} else {
		out.Status = types.StatusSubmittedUnconfirmed
	}
	if s.opts.Verbose {
		log.Printf("[SUBMIT] Submitted via %s (status=%s)", control, out.Status)
	}
	return out, nil
}

// answerFor maps a field back to the discovery prompt with the same ordinal,
// then falls back to its current label and finally to generic filler text.
func (s *Submitter) answerFor(f discovery.Field, byOrdinal map[int]types.FormPrompt, req Request) (string, string) {
	key := f.Key()
	if p, ok := byOrdinal[f.Ordinal]; ok {
		if answer, ok := req.Answers.Lookup(p.Key); ok {
			return p.Key, answer
		}
		key = p.Key
	}
	if answer, ok := req.Answers.Lookup(f.Key()); ok {
		return f.Key(), answer
	}
	return key, FillerAnswer(req.Identity.FirstName, key)
}

// FillerAnswer is the generic truthful text used for fields without a drafted answer.
func FillerAnswer(firstName, key string) string {
	if firstName == "" {
		firstName = "The applicant"
	}
	return fmt.Sprintf("%s has relevant experience for %q and is happy to discuss it in detail.", firstName, key)
}

// fillField tries a conventional fill, then simulated typing.
func (s *Submitter) fillField(ctx context.Context, page browser.Page, q browser.Query, key string, ordinal int, text string) types.FieldDiagnostic {
	diag := types.FieldDiagnostic{Key: key, Ordinal: ordinal, Chars: len([]rune(text))}
	err := page.Fill(ctx, q, text)
	if err == nil {
		return diag
	}
	if s.opts.Verbose {
		log.Printf("[SUBMIT] Fill of %q rejected, typing instead: %v", key, err)
	}
	if err := page.TypeText(ctx, q, text); err != nil {
		log.Printf("[SUBMIT] Could not fill %q: %v", key, err)
		diag.Error = types.FieldFillFailed
		return diag
	}
	diag.Typed = true
	return diag
}

func (s *Submitter) fillIdentity(ctx context.Context, page browser.Page, id types.Identity, out *types.SubmissionOutcome) {
	for _, field := range identityFields {
		value := field.value(id)
		if value == "" {
			continue
		}
		for _, q := range field.queries {
			ok, err := page.Exists(ctx, q)
			if err != nil || !ok {
				continue
			}
			out.Fields = append(out.Fields, s.fillField(ctx, page, q, field.key, 0, value))
			break
		}
	}
}

func (s *Submitter) uploadResume(ctx context.Context, page browser.Page, path string, out *types.SubmissionOutcome) {
	ok, err := page.Exists(ctx, ResumeInput)
	if err != nil || !ok {
		return
	}
	diag := types.FieldDiagnostic{Key: "resume"}
	if err := page.UploadFile(ctx, ResumeInput, path); err != nil {
		log.Printf("[SUBMIT] Resume upload failed: %v", err)
		diag.Error = err.Error()
	}
	out.Fields = append(out.Fields, diag)
}

func (s *Submitter) findSubmitControl(ctx context.Context, page browser.Page) (browser.Query, bool) {
	for _, q := range SubmitControls {
		ok, err := page.Exists(ctx, q)
		if err != nil {
			log.Printf("[SUBMIT] Probe %s failed: %v", q, err)
			continue
		}
		if ok {
			return q, true
		}
	}
	return browser.Query{}, false
}

func (s *Submitter) screenshot(ctx context.Context, page browser.Page, tag, name string, out *types.SubmissionOutcome) {
	if s.opts.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(s.opts.DebugDir, 0755); err != nil {
		log.Printf("[SUBMIT] Cannot create debug dir: %v", err)
		return
	}
	if tag == "" {
		tag = "job"
	}
	path := filepath.Join(s.opts.DebugDir, fmt.Sprintf("%s_%s.png", tag, name))
	if err := page.Screenshot(ctx, path); err != nil {
		log.Printf("[SUBMIT] Screenshot %s failed: %v", name, err)
		return
	}
	if out.Screenshots == nil {
		out.Screenshots = make(map[string]string)
	}
	out.Screenshots[name] = path
}

// ExtractConfirmation returns the first line of text containing a confirmation
// phrase, trimmed, or "" when there is none.
func ExtractConfirmation(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if ConfirmationPattern.MatchString(line) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
