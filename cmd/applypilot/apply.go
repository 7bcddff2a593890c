package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/config"
	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Preview or submit the application for one job",
	Long: `Runs the full sequence for the job given by --job: the form is located, its
questions discovered and answers drafted. Nothing is clicked unless --submit is
set. A job whose application was already submitted is refused.`,
	RunE: runApply,
}

var (
	applyJobID      int64
	applyProfileID  int64
	applyResumeMode string
	applySubmit     bool
	applyAPIKey     string
	applyJSON       bool
)

func init() {
	applyCmd.Flags().Int64Var(&applyJobID, "job", 0, "Job ID (required)")
	applyCmd.Flags().Int64Var(&applyProfileID, "profile", 0, "Applicant profile ID (default from config)")
	applyCmd.Flags().StringVar(&applyResumeMode, "resume-mode", "", `Resume source: "static" or "ai" (default from config)`)
	applyCmd.Flags().BoolVar(&applySubmit, "submit", false, "Click submit; by default the job is only previewed")
	applyCmd.Flags().StringVar(&applyAPIKey, "api-key", "", "Gemini API key (default: config, GEMINI_API_KEY, then OS keyring)")
	applyCmd.Flags().BoolVar(&applyJSON, "json", false, "Print the result as JSON")
	_ = applyCmd.MarkFlagRequired("job")

	rootCmd.AddCommand(applyCmd)
}

// applyRequestFromFlags overlays explicitly set flags on the configured batch defaults.
func applyRequestFromFlags(cmd *cobra.Command, c *config.Config) types.ApplyRequest {
	req := types.ApplyRequest{
		JobID:      applyJobID,
		ProfileID:  c.Batch.ProfileID,
		ResumeMode: c.Batch.ResumeMode,
		Submit:     applySubmit,
	}
	if cmd.Flags().Changed("profile") {
		req.ProfileID = applyProfileID
	}
	if cmd.Flags().Changed("resume-mode") {
		req.ResumeMode = applyResumeMode
	}
	return req
}

func runApply(cmd *cobra.Command, _ []string) error {
	req := applyRequestFromFlags(cmd, cfg)
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid apply options: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, appOptions{needDB: true, needLLM: true, apiKey: applyAPIKey})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.runner(nil).ApplyJob(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if applyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	observability.NewPrinter(out).PrintOutcome(&result.Outcome)
	return nil
}
