// Package ingestion imports job postings into the store, from a single URL or
// from a company's public job board, and fetches posting descriptions.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/jonathan/applypilot/internal/fetch"
	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/types"
)

var (
	// ErrInvalidURL is returned when URL is malformed
	ErrInvalidURL = errors.New("invalid URL")
	// ErrHTTPRequestFailed is returned when HTTP request fails
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when content extraction fails
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

// JobStore persists imported postings.
type JobStore interface {
	InsertJob(ctx context.Context, j *types.JobPosting) (*types.JobPosting, error)
}

// Importer saves postings found by URL or on job boards.
type Importer struct {
	store   JobStore
	client  llm.Client
	boards  map[string]BoardSource
	opts    *fetch.Options
	verbose bool
}

// ImporterOption configures an Importer
type ImporterOption func(*Importer)

// WithLLM enables model-based title/company/location extraction for pages
// whose markup lacks them.
func WithLLM(client llm.Client) ImporterOption {
	return func(i *Importer) { i.client = client }
}

// WithBoard registers a board source under name, replacing any default.
func WithBoard(name string, source BoardSource) ImporterOption {
	return func(i *Importer) { i.boards[name] = source }
}

// WithFetchOptions sets the HTTP options used for page fetches.
func WithFetchOptions(opts *fetch.Options) ImporterOption {
	return func(i *Importer) { i.opts = opts }
}

// WithImporterVerbose enables detail logging.
func WithImporterVerbose(v bool) ImporterOption {
	return func(i *Importer) { i.verbose = v }
}

// NewImporter returns an Importer with the Greenhouse and Lever board sources.
func NewImporter(store JobStore, opts ...ImporterOption) *Importer {
	i := &Importer{
		store: store,
		boards: map[string]BoardSource{
			types.BoardSourceGreenhouse: NewGreenhouseBoard(),
			types.BoardSourceLever:      NewLeverBoard(),
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportURL detects the ATS family, fills in title/company/location from the
// page where the request leaves them blank and saves the posting. A page that
// cannot be fetched still imports with whatever the request supplied.
func (i *Importer) ImportURL(ctx context.Context, req types.ImportJobRequest) (*types.JobPosting, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	family := fetch.DetectATS(req.URL)
	job := &types.JobPosting{
		URL:         req.URL,
		Source:      "url",
		Company:     strings.TrimSpace(req.Company),
		CompanySlug: BoardSlug(req.URL),
		Title:       strings.TrimSpace(req.Title),
		ATS:         family,
	}
	if i.verbose {
		log.Printf("[IMPORT] %s: platform %s, slug %q", req.URL, family, job.CompanySlug)
	}

	if job.Title == "" || job.Company == "" {
		i.enrich(ctx, job)
	}
	if job.Company == "" && job.CompanySlug != "" {
		job.Company = job.CompanySlug
	}

	saved, err := i.store.InsertJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return saved, nil
}

func (i *Importer) enrich(ctx context.Context, job *types.JobPosting) {
	result, err := fetch.URL(ctx, job.URL, i.opts)
	if err != nil {
		log.Printf("[IMPORT] Could not fetch %s: %v", job.URL, err)
		return
	}
	if job.Title == "" {
		job.Title = fetch.ExtractTitle(result.HTML)
	}
	if job.Company != "" || i.client == nil {
		return
	}

	text, err := fetch.ExtractMainText(result.HTML, fetch.PlatformContentSelectors(job.ATS), fetch.PlatformNoiseSelectors(job.ATS)...)
	if err != nil {
		return
	}
	details, err := ExtractJobDetails(ctx, i.client, CleanText(text))
	if err != nil {
		log.Printf("[IMPORT] Job detail extraction failed: %v", err)
		return
	}
	job.Company = strings.TrimSpace(details.Company)
	job.Location = strings.TrimSpace(details.Location)
	if job.Title == "" {
		job.Title = strings.TrimSpace(details.Title)
	}
}

// BoardSlug returns the organization slug from a hosted Greenhouse URL
// (boards.greenhouse.io/{slug}/jobs/...), or "" for other URLs.
func BoardSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !fetch.OnDomain(u.Hostname(), "greenhouse.io") {
		return ""
	}
	if slug := u.Query().Get("for"); slug != "" {
		return slug
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[1] != "jobs" {
		return ""
	}
	return segments[0]
}
