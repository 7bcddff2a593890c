package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/applypilot/internal/types"
)

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	out := &types.SubmissionOutcome{
		JobID:            42,
		Company:          "Acme Corp",
		Title:            "Senior Engineer",
		ATS:              types.ATSGreenhouse,
		Status:           types.StatusSubmitted,
		FormStrategy:     "embed",
		ConfirmationText: "Thank you for applying!",
		Prompts:          []types.FormPrompt{{Key: "Why Acme?", Ordinal: 1}},
		Answers:          types.DraftedAnswers{"Why Acme?": "I built payment systems."},
		Fields:           []types.FieldDiagnostic{{Key: "Why Acme?", Error: types.FieldFillFailed}},
	}

	p.PrintOutcome(out)
	output := buf.String()

	assert.Contains(t, output, "JOB 42")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Senior Engineer")
	assert.Contains(t, output, "submitted")
	assert.Contains(t, output, "embed")
	assert.Contains(t, output, "Thank you for applying!")
	assert.Contains(t, output, "Why Acme?")
	assert.Contains(t, output, "I built payment systems.")
	assert.Contains(t, output, "Fields not filled: 1")
}

func TestPrintOutcome_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintOutcome(nil)
	assert.Empty(t, buf.String())
}

func TestPrintOutcome_ManyPrompts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	out := &types.SubmissionOutcome{JobID: 1, Status: types.StatusPreviewed}
	for i := 1; i <= 8; i++ {
		out.Prompts = append(out.Prompts, types.FormPrompt{Key: fmt.Sprintf("question_%d", i), Ordinal: i})
	}

	p.PrintOutcome(out)
	output := buf.String()

	assert.Contains(t, output, "Questions (8)")
	assert.Contains(t, output, "question_5")
	assert.NotContains(t, output, "question_6")
	assert.Contains(t, output, "... and 3 more")
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	result := &types.BatchResult{
		RunID:  "run-1",
		Picked: 3,
		Submit: true,
		OK:     true,
		Results: []types.SubmissionOutcome{
			{Status: types.StatusSubmitted},
			{Status: types.StatusFailed},
			{Status: types.StatusSubmitted},
		},
		LeadsLog:   "/data/leads.xlsx",
		OutcomeLog: "/data/applications.xlsx",
	}

	p.PrintBatchSummary(result)
	output := buf.String()

	assert.Contains(t, output, "AUTOPILOT BATCH")
	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "Picked:   3")
	assert.Regexp(t, `submitted\s+2`, output)
	assert.Regexp(t, `failed\s+1`, output)
	assert.Contains(t, output, "/data/leads.xlsx")
	assert.Contains(t, output, "/data/applications.xlsx")
}

func TestPrintBatch_IncludesEveryOutcome(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBatch(&types.BatchResult{
		RunID: "run-2",
		Note:  "No unapplied jobs available",
	})
	assert.Contains(t, buf.String(), "No unapplied jobs available")

	buf.Reset()
	p.PrintBatch(&types.BatchResult{Results: []types.SubmissionOutcome{{JobID: 1}, {JobID: 2}}})
	assert.Contains(t, buf.String(), "JOB 1")
	assert.Contains(t, buf.String(), "JOB 2")
}

func TestPrintImported(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	jobs := make([]types.JobPosting, 7)
	for i := range jobs {
		jobs[i] = types.JobPosting{ID: int64(i + 1), Title: fmt.Sprintf("Role %d", i+1), Company: "acme", ATS: types.ATSGreenhouse}
	}
	p.PrintImported("greenhouse", jobs)
	output := buf.String()

	assert.Contains(t, output, "Imported 7 jobs from greenhouse")
	assert.Contains(t, output, "Role 5")
	assert.Contains(t, output, "... and 2 more jobs")
}

func TestPrintBox_Truncation(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TEST", strings.Repeat("x", 100))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "héllo", truncate("héllo", 5))
}

func TestPrintPrompts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintPrompts("https://boards.greenhouse.io/embed/job_app?for=acme&token=1", "embed", []types.FormPrompt{
		{Key: "Why do you want to work here?", Kind: types.PromptLongAnswer, Ordinal: 1},
		{Key: "question_2", Kind: types.PromptLongAnswer, Ordinal: 2},
	})
	output := buf.String()

	assert.Contains(t, output, "APPLICATION QUESTIONS")
	assert.Contains(t, output, "Strategy: embed")
	assert.Contains(t, output, "Questions (2)")
	assert.Contains(t, output, "question_2")
}
