// Package drafting writes form answers and resume content from the applicant's
// profile and experience bank, and nothing else.
package drafting

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/prompts"
	"github.com/jonathan/applypilot/internal/schemas"
	"github.com/jonathan/applypilot/internal/types"
)

// DefaultConcurrency bounds parallel answer requests for one form.
const DefaultConcurrency = 4

// MaxJobDescriptionChars caps the job text included in a prompt.
const MaxJobDescriptionChars = 12000

// Drafter produces answers and resume content through an llm.Client.
type Drafter struct {
	client      llm.Client
	concurrency int
	verbose     bool
}

// Option configures a Drafter
type Option func(*Drafter)

// WithConcurrency sets how many answers are drafted at once.
func WithConcurrency(n int) Option {
	return func(d *Drafter) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithVerbose enables detail logging.
func WithVerbose(v bool) Option {
	return func(d *Drafter) { d.verbose = v }
}

// New returns a Drafter backed by client.
func New(client llm.Client, opts ...Option) *Drafter {
	d := &Drafter{client: client, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DraftAnswers drafts one answer per distinct prompt key. Answers are stored
// under the key and its lowercase form. A blank reply becomes the standard
// fallback sentence; a failed call fails the whole draft.
func (d *Drafter) DraftAnswers(ctx context.Context, formPrompts []types.FormPrompt, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (types.DraftedAnswers, error) {
	answers := make(types.DraftedAnswers)
	if len(formPrompts) == 0 {
		return answers, nil
	}
	if d.client == nil {
		return nil, ErrNoClient
	}

	system, err := prompts.Get(prompts.Drafting, "answer-system")
	if err != nil {
		return nil, err
	}
	fallback, err := prompts.Get(prompts.Drafting, "answer-fallback")
	if err != nil {
		return nil, err
	}
	base := promptData(profile, facts, jdText)

	var mu sync.Mutex
	seen := make(map[string]bool)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, p := range formPrompts {
		if seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		key := p.Key

		g.Go(func() error {
			data := make(map[string]string, len(base)+1)
			for k, v := range base {
				data[k] = v
			}
			data["Question"] = key
			user, err := prompts.Render(prompts.Drafting, "answer-user", data)
			if err != nil {
				return err
			}

			text, err := d.client.GenerateContent(gCtx, system, user, llm.TierStandard)
			if err != nil {
				return &APICallError{Message: fmt.Sprintf("answer for %q", key), Cause: err}
			}
			text = strings.TrimSpace(text)
			if text == "" {
				text = fallback
			}
			if d.verbose {
				log.Printf("[DRAFT] Answer for %q: %d chars", key, len(text))
			}

			mu.Lock()
			answers[key] = text
			if lower := strings.ToLower(key); lower != key {
				if _, exists := answers[lower]; !exists {
					answers[lower] = text
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

// resumeOutput is the JSON shape requested from the model
type resumeOutput struct {
	Headline   string                `json:"headline"`
	Summary    string                `json:"summary"`
	Skills     []string              `json:"skills"`
	Highlights []types.ResumeSection `json:"highlights"`
}

// ResumeContext drafts tailored resume content and validates it against the
// resume context schema before use. Contact details always come from the
// profile, never from the model.
func (d *Drafter) ResumeContext(ctx context.Context, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (*types.ResumeContext, error) {
	if d.client == nil {
		return nil, ErrNoClient
	}
	system, err := prompts.Get(prompts.Drafting, "resume-system")
	if err != nil {
		return nil, err
	}
	user, err := prompts.Render(prompts.Drafting, "resume-user", promptData(profile, facts, jdText))
	if err != nil {
		return nil, err
	}

	raw, err := d.client.GenerateJSON(ctx, system, user, llm.TierAdvanced)
	if err != nil {
		return nil, &APICallError{Message: "resume content", Cause: err}
	}
	raw = llm.CleanJSONBlock(raw)
	if err := schemas.ValidateResumeContext(raw); err != nil {
		return nil, &ParseError{Message: "resume content failed schema validation", Cause: err}
	}

	var out resumeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &ParseError{Message: "failed to unmarshal resume content", Cause: err}
	}
	if d.verbose {
		log.Printf("[DRAFT] Resume content: %d skills, %d sections", len(out.Skills), len(out.Highlights))
	}

	id := profile.Identity()
	rc := &types.ResumeContext{
		Name:       strings.TrimSpace(id.FirstName + " " + id.LastName),
		Email:      id.Email,
		Phone:      id.Phone,
		Location:   profile.Location,
		Headline:   out.Headline,
		Summary:    out.Summary,
		Skills:     out.Skills,
		Highlights: out.Highlights,
	}
	if len(rc.Skills) == 0 {
		rc.Skills = profile.Skills
	}
	return rc, nil
}

func promptData(profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) map[string]string {
	var sb strings.Builder
	for _, f := range facts {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	jd := []rune(strings.TrimSpace(jdText))
	if len(jd) > MaxJobDescriptionChars {
		jd = jd[:MaxJobDescriptionChars]
	}
	return map[string]string{
		"Name":           profile.Name,
		"Location":       profile.Location,
		"Skills":         strings.Join(profile.Skills, ", "),
		"Facts":          strings.TrimRight(sb.String(), "\n"),
		"JobDescription": string(jd),
	}
}
