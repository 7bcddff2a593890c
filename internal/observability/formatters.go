// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/applypilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintOutcome outputs one job's outcome, including the prompts found and a
// preview of each drafted answer.
func (p *Printer) PrintOutcome(out *types.SubmissionOutcome) {
	if out == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", out.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", out.Title))
	sb.WriteString(fmt.Sprintf("ATS:      %s\n", out.ATS))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", out.Status))
	if out.FormStrategy != "" {
		sb.WriteString(fmt.Sprintf("Form:     %s\n", out.FormStrategy))
	}
	if out.ConfirmationText != "" {
		sb.WriteString(fmt.Sprintf("Confirm:  %s\n", out.ConfirmationText))
	}
	if out.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", out.Error))
	}

	if len(out.Prompts) > 0 {
		sb.WriteString(fmt.Sprintf("\nQuestions (%d):\n", len(out.Prompts)))
		count := min(len(out.Prompts), maxItemsToShow)
		for i := 0; i < count; i++ {
			key := out.Prompts[i].Key
			sb.WriteString(fmt.Sprintf("  • %s\n", truncate(key, 50)))
			if answer, ok := out.Answers.Lookup(key); ok {
				sb.WriteString(fmt.Sprintf("    %s\n", truncate(answer, 48)))
			}
		}
		if len(out.Prompts) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(out.Prompts)-maxItemsToShow))
		}
	}

	failed := 0
	for _, f := range out.Fields {
		if f.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		sb.WriteString(fmt.Sprintf("\nFields not filled: %d\n", failed))
	}

	p.printBox(fmt.Sprintf("JOB %d", out.JobID), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchSummary outputs per-status counts and the log file locations.
func (p *Printer) PrintBatchSummary(result *types.BatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", result.RunID))
	sb.WriteString(fmt.Sprintf("Picked:   %d\n", result.Picked))
	sb.WriteString(fmt.Sprintf("Submit:   %t\n", result.Submit))
	sb.WriteString(fmt.Sprintf("OK:       %t\n", result.OK))
	if result.Note != "" {
		sb.WriteString(fmt.Sprintf("Note:     %s\n", result.Note))
	}

	counts := result.Counts()
	if len(counts) > 0 {
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		sb.WriteString("\n")
		for _, s := range statuses {
			sb.WriteString(fmt.Sprintf("  %-22s %d\n", s, counts[types.Status(s)]))
		}
	}

	if result.LeadsLog != "" {
		sb.WriteString(fmt.Sprintf("\nLeads:        %s\n", result.LeadsLog))
	}
	if result.OutcomeLog != "" {
		sb.WriteString(fmt.Sprintf("Applications: %s\n", result.OutcomeLog))
	}

	p.printBox("AUTOPILOT BATCH", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatch outputs every outcome followed by the summary.
func (p *Printer) PrintBatch(result *types.BatchResult) {
	if result == nil {
		return
	}
	for i := range result.Results {
		p.PrintOutcome(&result.Results[i])
	}
	p.PrintBatchSummary(result)
}

// PrintImported outputs the jobs saved by an import.
func (p *Printer) PrintImported(source string, jobs []types.JobPosting) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Imported %d jobs from %s\n", len(jobs), source))
	count := min(len(jobs), maxItemsToShow)
	for i := 0; i < count; i++ {
		j := jobs[i]
		sb.WriteString(fmt.Sprintf("\n#%d  %s\n", j.ID, j.Title))
		sb.WriteString(fmt.Sprintf("    %s (%s)\n", j.Company, j.ATS))
	}
	if len(jobs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more jobs", len(jobs)-maxItemsToShow))
	}
	p.printBox("IMPORTED JOBS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPrompts outputs the long-answer questions found on one application form.
func (p *Printer) PrintPrompts(formURL, strategy string, prompts []types.FormPrompt) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Form:     %s\n", formURL))
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", strategy))
	sb.WriteString(fmt.Sprintf("\nQuestions (%d):\n", len(prompts)))
	for _, q := range prompts {
		sb.WriteString(fmt.Sprintf("  %2d. [%s] %s\n", q.Ordinal, q.Kind, truncate(q.Key, 40)))
	}
	p.printBox("APPLICATION QUESTIONS", strings.TrimSuffix(sb.String(), "\n"))
}
