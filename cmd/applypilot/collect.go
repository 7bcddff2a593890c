package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/ingestion"
	"github.com/jonathan/applypilot/internal/navigation"
	"github.com/jonathan/applypilot/internal/observability"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "List the long-answer questions on a posting's application form",
	Long: `Opens the posting at --url, reaches its Greenhouse application form and prints
the long-answer questions found there. Nothing is filled or submitted.`,
	RunE: runCollect,
}

var (
	collectURL  string
	collectSlug string
)

func init() {
	collectCmd.Flags().StringVar(&collectURL, "url", "", "Job posting URL (required)")
	collectCmd.Flags().StringVar(&collectSlug, "slug", "", "Greenhouse organization slug (default: taken from the URL)")
	_ = collectCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	slug := collectSlug
	if slug == "" {
		slug = ingestion.BoardSlug(collectURL)
	}

	session, err := a.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer session.Close() //nolint:errcheck

	page := session.Page()
	res := navigation.New(navigation.WithVerbose(cfg.Verbose)).Resolve(ctx, page, collectURL, slug)
	if res.Strategy == navigation.StrategyNone {
		return fmt.Errorf("application form could not be loaded from %s", collectURL)
	}

	prompts, err := discovery.New(cfg.Verbose).Discover(ctx, page)
	if err != nil {
		return fmt.Errorf("failed to discover questions: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintPrompts(res.URL, res.Strategy, prompts)
	return nil
}
