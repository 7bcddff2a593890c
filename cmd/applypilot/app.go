package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jonathan/applypilot/internal/autopilot"
	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/config"
	"github.com/jonathan/applypilot/internal/db"
	"github.com/jonathan/applypilot/internal/discovery"
	"github.com/jonathan/applypilot/internal/drafting"
	"github.com/jonathan/applypilot/internal/fetch"
	"github.com/jonathan/applypilot/internal/ingestion"
	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/metrics"
	"github.com/jonathan/applypilot/internal/navigation"
	"github.com/jonathan/applypilot/internal/rendering"
	"github.com/jonathan/applypilot/internal/selection"
	"github.com/jonathan/applypilot/internal/submission"
	"github.com/jonathan/applypilot/internal/tracker"
	"github.com/jonathan/applypilot/internal/types"
)

// app holds the process-wide collaborators shared by the commands.
type app struct {
	cfg      *config.Config
	db       *db.DB
	llm      llm.Client
	launcher browser.Launcher
	// chrome is set when the chromedp driver is selected; it doubles as the PDF printer.
	chrome  *browser.ChromeLauncher
	metrics *metrics.Recorder
}

// appOptions selects which collaborators a command needs.
type appOptions struct {
	needDB bool
	// needLLM fails when no API key is available; wantLLM only tries.
	needLLM bool
	wantLLM bool
	apiKey  string
}

func newApp(ctx context.Context, c *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: c, metrics: metrics.New()}

	bopts := browser.Options{
		Headless:          c.Browser.Headless,
		ActionTimeout:     c.Browser.ActionTimeout,
		NavigationTimeout: c.Browser.NavigationTimeout,
		Verbose:           c.Verbose,
	}
	if c.Browser.Driver == "static" {
		a.launcher = browser.NewStaticLauncher(bopts)
	} else {
		a.chrome = browser.NewChromeLauncher(bopts)
		a.launcher = a.chrome
	}

	if opts.needLLM || opts.wantLLM {
		key, err := c.ResolveAPIKey(opts.apiKey)
		switch {
		case err == nil:
			client, err := llm.NewClient(ctx, llm.DefaultConfig(), key)
			if err != nil {
				return nil, fmt.Errorf("failed to create LLM client: %w", err)
			}
			a.llm = llm.NewRateLimitedClient(client, c.LLM.RequestsPerSecond, c.LLM.Burst)
		case opts.needLLM:
			return nil, err
		case errors.Is(err, config.ErrAPIKeyNotFound):
			log.Printf("[CONFIG] No API key; continuing without text generation")
		}
	}

	if opts.needDB {
		if c.DatabaseURL == "" {
			a.Close()
			return nil, fmt.Errorf("database_url is required (set DATABASE_URL or APPLYPILOT_DATABASE_URL)")
		}
		database, err := db.Connect(ctx, c.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = database
	}
	return a, nil
}

// Close releases the database pool and the LLM client.
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			log.Printf("[APP] Failed to close LLM client: %v", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

// runner wires the batch orchestrator. It requires the database and the LLM client.
func (a *app) runner(onProgress autopilot.ProgressCallback) *autopilot.Runner {
	c := a.cfg
	v := c.Verbose

	drafter := drafting.New(a.llm, drafting.WithConcurrency(c.LLM.Concurrency), drafting.WithVerbose(v))

	var printer rendering.Printer
	if a.chrome != nil {
		printer = a.chrome
	}
	discoverer := discovery.New(v)

	deps := autopilot.Deps{
		Profiles: a.db,
		Jobs:     a.db,
		Attempts: a.db,
		NewSelector: func(runID string) autopilot.JobSelector {
			return selection.New(a.db,
				selection.WithClaims(a.db, runID, c.Batch.ClaimTTL),
				selection.WithVerbose(v))
		},
		Descriptions: ingestion.NewDescriptionFetcher(a.launcher, fetch.DefaultOptions(), v),
		Resumes:      rendering.NewBuilder(drafter, rendering.NewPDFRenderer(printer, c.DocOutDir, v)),
		Drafter:      drafter,
		Launcher:     a.launcher,
		Navigator:    navigation.New(navigation.WithVerbose(v)),
		Discoverer:   discoverer,
		Submitter: submission.New(discoverer, submission.Options{
			SubmitWait: c.Browser.SubmitWait,
			DebugDir:   c.DebugDir,
			Verbose:    v,
		}),
		Log:     tracker.New(c.Tracker.ApplicationsPath, c.Tracker.LeadsPath),
		Metrics: a.metrics,
	}

	return autopilot.New(deps, autopilot.Options{
		LockPath:     c.Batch.LockPath,
		FailureDelay: c.Batch.FailureDelay,
		Verbose:      v,
		OnProgress:   onProgress,
	})
}

// importer wires job import. Text generation enriches imports when available.
func (a *app) importer() *ingestion.Importer {
	opts := []ingestion.ImporterOption{
		ingestion.WithBoard(types.BoardSourceGreenhouse, ingestion.NewGreenhouseBoard()),
		ingestion.WithBoard(types.BoardSourceLever, ingestion.NewLeverBoard()),
		ingestion.WithImporterVerbose(a.cfg.Verbose),
	}
	if a.llm != nil {
		opts = append(opts, ingestion.WithLLM(a.llm))
	}
	return ingestion.NewImporter(a.db, opts...)
}

// batchDefaults converts the configured batch settings into a request.
func batchDefaults(c *config.Config) types.BatchRequest {
	return types.BatchRequest{
		ProfileID:    c.Batch.ProfileID,
		Limit:        c.Batch.Limit,
		ResumeMode:   c.Batch.ResumeMode,
		Submit:       c.Batch.Submit,
		DelaySeconds: c.Batch.Delay.Seconds(),
	}
}
