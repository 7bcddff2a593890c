package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/observability"
	"github.com/jonathan/applypilot/internal/types"
)

var importJobCmd = &cobra.Command{
	Use:   "import-job",
	Short: "Import a single job posting by URL",
	Long: `Fetches the posting at --url, detects its ATS family and saves it. When a Gemini
API key is available, missing company and title fields are extracted from the page text.`,
	RunE: runImportJob,
}

var importBoardCmd = &cobra.Command{
	Use:   "import-board <company>...",
	Short: "Import every posting from company job boards",
	Long: `Lists the public job board of each company (Greenhouse by default, or Lever)
and saves every posting. Postings already in the store are not duplicated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImportBoard,
}

var (
	importURL     string
	importCompany string
	importTitle   string
	importAPIKey  string

	boardSource string
	boardLimit  int
)

func init() {
	importJobCmd.Flags().StringVar(&importURL, "url", "", "Job posting URL (required)")
	importJobCmd.Flags().StringVar(&importCompany, "company", "", "Company name (optional)")
	importJobCmd.Flags().StringVar(&importTitle, "title", "", "Role title (optional)")
	importJobCmd.Flags().StringVar(&importAPIKey, "api-key", "", "Gemini API key for detail extraction (optional)")
	_ = importJobCmd.MarkFlagRequired("url")

	importBoardCmd.Flags().StringVar(&boardSource, "source", types.BoardSourceGreenhouse, `Board type: "greenhouse" or "lever"`)
	importBoardCmd.Flags().IntVar(&boardLimit, "limit", 0, "Maximum postings per company (0 for all)")

	rootCmd.AddCommand(importJobCmd)
	rootCmd.AddCommand(importBoardCmd)
}

func runImportJob(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cfg, appOptions{needDB: true, wantLLM: true, apiKey: importAPIKey})
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.importer().ImportURL(ctx, types.ImportJobRequest{
		URL:     importURL,
		Company: importCompany,
		Title:   importTitle,
	})
	if err != nil {
		return fmt.Errorf("failed to import job: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintImported(importURL, []types.JobPosting{*job})
	return nil
}

func runImportBoard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cfg, appOptions{needDB: true})
	if err != nil {
		return err
	}
	defer a.Close()

	importer := a.importer()
	out := cmd.OutOrStdout()
	failed := 0
	for _, company := range args {
		result, err := importer.ImportBoard(ctx, types.ImportBoardRequest{
			Source:  boardSource,
			Company: company,
			Limit:   boardLimit,
		})
		if err != nil {
			_, _ = fmt.Fprintf(out, "✗ %s: %v\n", company, err)
			failed++
			continue
		}
		_, _ = fmt.Fprintf(out, "✓ %s (%s): %d saved, %d failed, %d seen\n",
			company, result.Source, result.Saved, result.Failed, result.Seen)
	}

	if failed == len(args) {
		return fmt.Errorf("no board could be imported")
	}
	return nil
}
