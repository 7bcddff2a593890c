package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/autopilot"
	"github.com/jonathan/applypilot/internal/config"
	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/types"
)

var autopilotCmd = &cobra.Command{
	Use:   "autopilot",
	Short: "Apply to a batch of unattempted jobs",
	Long: `Picks up to --limit jobs that have never been attempted, prepares a resume and
drafted answers for each, and fills and submits the application form.

With --submit=false every job is previewed: questions are discovered and answers
drafted, but nothing is clicked. Only one batch runs at a time.`,
	RunE: runAutopilot,
}

var (
	apProfileID  int64
	apLimit      int
	apResumeMode string
	apSubmit     bool
	apDelay      time.Duration
	apAPIKey     string
	apJSON       bool
)

func init() {
	autopilotCmd.Flags().Int64Var(&apProfileID, "profile", 0, "Applicant profile ID (default from config)")
	autopilotCmd.Flags().IntVarP(&apLimit, "limit", "l", 0, "Maximum jobs in this batch, 1-50 (default from config)")
	autopilotCmd.Flags().StringVar(&apResumeMode, "resume-mode", "", `Resume source: "static" or "ai" (default from config)`)
	autopilotCmd.Flags().BoolVar(&apSubmit, "submit", true, "Click submit; false previews only")
	autopilotCmd.Flags().DurationVar(&apDelay, "delay", 0, "Pause after each successful job, at most 10s (default from config)")
	autopilotCmd.Flags().StringVar(&apAPIKey, "api-key", "", "Gemini API key (default: config, GEMINI_API_KEY, then OS keyring)")
	autopilotCmd.Flags().BoolVar(&apJSON, "json", false, "Print the batch result as JSON")

	rootCmd.AddCommand(autopilotCmd)
}

// batchRequestFromFlags overlays explicitly set flags on the configured defaults.
func batchRequestFromFlags(cmd *cobra.Command, c *config.Config) types.BatchRequest {
	req := batchDefaults(c)
	if cmd.Flags().Changed("profile") {
		req.ProfileID = apProfileID
	}
	if cmd.Flags().Changed("limit") {
		req.Limit = apLimit
	}
	if cmd.Flags().Changed("resume-mode") {
		req.ResumeMode = apResumeMode
	}
	if cmd.Flags().Changed("submit") {
		req.Submit = apSubmit
	}
	if cmd.Flags().Changed("delay") {
		req.DelaySeconds = apDelay.Seconds()
	}
	return req
}

func runAutopilot(cmd *cobra.Command, _ []string) error {
	req := batchRequestFromFlags(cmd, cfg)
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid batch options: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, appOptions{needDB: true, needLLM: true, apiKey: apAPIKey})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var progress autopilot.ProgressCallback
	if !apJSON {
		progress = func(e autopilot.ProgressEvent) {
			switch e.Step {
			case "job_start":
				_, _ = fmt.Fprintf(out, "→ Job %d: %s\n", e.JobID, e.Message)
			case "job_done":
				if e.Message != "" {
					_, _ = fmt.Fprintf(out, "  %s: %s\n", e.Status, e.Message)
				} else {
					_, _ = fmt.Fprintf(out, "  %s\n", e.Status)
				}
			}
		}
	}

	if !apJSON {
		mode := "submit"
		if !req.Submit {
			mode = "preview"
		}
		_, _ = fmt.Fprintf(out, "Starting batch: up to %d jobs, %s resume, %s\n", req.Limit, req.ResumeMode, mode)
	}

	result, err := a.runner(progress).Run(ctx, req)
	if err != nil {
		return err
	}

	if apJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printer := observability.NewPrinter(out)
	if cfg.Verbose {
		printer.PrintBatch(result)
	} else {
		printer.PrintBatchSummary(result)
	}
	return nil
}
