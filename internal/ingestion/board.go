package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/applypilot/internal/fetch"
	"github.com/jonathan/applypilot/internal/types"
)

// Public board endpoints
const (
	GreenhouseBoardsAPI = "https://boards-api.greenhouse.io/v1/boards"
	LeverPostingsAPI    = "https://api.lever.co/v0/postings"
)

// BoardSource lists the open postings of one company.
type BoardSource interface {
	ListJobs(ctx context.Context, company string) ([]types.JobPosting, error)
}

// GreenhouseBoard reads the public Greenhouse job board API.
type GreenhouseBoard struct {
	BaseURL string
	Client  *http.Client
}

// NewGreenhouseBoard returns a board source for the public API.
func NewGreenhouseBoard() *GreenhouseBoard {
	return &GreenhouseBoard{BaseURL: GreenhouseBoardsAPI, Client: &http.Client{Timeout: fetch.DefaultTimeout}}
}

type greenhouseJobs struct {
	Jobs []struct {
		AbsoluteURL string `json:"absolute_url"`
		Title       string `json:"title"`
		Location    struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"jobs"`
}

// ListJobs implements BoardSource.
func (b *GreenhouseBoard) ListJobs(ctx context.Context, company string) ([]types.JobPosting, error) {
	var body greenhouseJobs
	endpoint := fmt.Sprintf("%s/%s/jobs", strings.TrimRight(b.BaseURL, "/"), url.PathEscape(company))
	if err := getJSON(ctx, b.Client, endpoint, &body); err != nil {
		return nil, err
	}
	jobs := make([]types.JobPosting, 0, len(body.Jobs))
	for _, j := range body.Jobs {
		if j.AbsoluteURL == "" {
			continue
		}
		jobs = append(jobs, types.JobPosting{
			URL:         j.AbsoluteURL,
			Source:      types.BoardSourceGreenhouse,
			Company:     company,
			CompanySlug: company,
			Title:       j.Title,
			Location:    j.Location.Name,
			ATS:         types.ATSGreenhouse,
		})
	}
	return jobs, nil
}

// LeverBoard reads the public Lever postings API.
type LeverBoard struct {
	BaseURL string
	Client  *http.Client
}

// NewLeverBoard returns a board source for the public API.
func NewLeverBoard() *LeverBoard {
	return &LeverBoard{BaseURL: LeverPostingsAPI, Client: &http.Client{Timeout: fetch.DefaultTimeout}}
}

type leverPosting struct {
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
}

// ListJobs implements BoardSource.
func (b *LeverBoard) ListJobs(ctx context.Context, company string) ([]types.JobPosting, error) {
	var body []leverPosting
	endpoint := fmt.Sprintf("%s/%s?mode=json", strings.TrimRight(b.BaseURL, "/"), url.PathEscape(company))
	if err := getJSON(ctx, b.Client, endpoint, &body); err != nil {
		return nil, err
	}
	jobs := make([]types.JobPosting, 0, len(body))
	for _, p := range body {
		if p.HostedURL == "" {
			continue
		}
		jobs = append(jobs, types.JobPosting{
			URL:         p.HostedURL,
			Source:      types.BoardSourceLever,
			Company:     company,
			CompanySlug: company,
			Title:       p.Text,
			Location:    p.Categories.Location,
			ATS:         types.ATSLever,
		})
	}
	return jobs, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	if client == nil {
		client = &http.Client{Timeout: fetch.DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", fetch.DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrHTTPRequestFailed, endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	return nil
}

// BoardImportResult summarizes one board import.
type BoardImportResult struct {
	Source string `json:"source"`
	Seen   int    `json:"seen"`
	Saved  int    `json:"saved"`
	Failed int    `json:"failed"`
}

// ImportBoard saves up to req.Limit postings (all when zero) from a company board.
// Existing postings are upserted, never duplicated.
func (i *Importer) ImportBoard(ctx context.Context, req types.ImportBoardRequest) (*BoardImportResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := req.Source
	if name == "" {
		name = types.BoardSourceGreenhouse
	}
	source, ok := i.boards[name]
	if !ok {
		return nil, fmt.Errorf("unsupported board source %q", name)
	}

	started := time.Now()
	jobs, err := source.ListJobs(ctx, req.Company)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s board %q: %w", name, req.Company, err)
	}
	if req.Limit > 0 && len(jobs) > req.Limit {
		jobs = jobs[:req.Limit]
	}

	result := &BoardImportResult{Source: name, Seen: len(jobs)}
	for idx := range jobs {
		if _, err := i.store.InsertJob(ctx, &jobs[idx]); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Printf("[IMPORT] Failed to save %s: %v", jobs[idx].URL, err)
			result.Failed++
			continue
		}
		result.Saved++
	}
	if i.verbose {
		log.Printf("[IMPORT] %s board %q: %d saved of %d in %v", name, req.Company, result.Saved, result.Seen, time.Since(started))
	}
	return result, nil
}
