package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/llm"
	"github.com/jonathan/applypilot/internal/types"
)

type memStore struct {
	mu    sync.Mutex
	jobs  map[string]types.JobPosting
	fail  string
	calls int
}

func newMemStore() *memStore { return &memStore{jobs: map[string]types.JobPosting{}} }

func (s *memStore) InsertJob(_ context.Context, j *types.JobPosting) (*types.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != "" && j.URL == s.fail {
		return nil, errors.New("constraint violation")
	}
	saved := *j
	saved.ID = int64(len(s.jobs) + 1)
	s.jobs[j.URL] = saved
	return &saved, nil
}

func TestBoardSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://boards.greenhouse.io/acme/jobs/123", "acme"},
		{"https://job-boards.greenhouse.io/acme/jobs/123?gh_src=x", "acme"},
		{"https://boards.greenhouse.io/embed/job_app?for=acme&token=1", "acme"},
		{"https://boards.greenhouse.io/acme", ""},
		{"https://acme.com/acme/jobs/123", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, BoardSlug(tt.url))
		})
	}
}

func TestImportURL_FillsTitleFromPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Careers</title></head><body><h1>Staff Engineer</h1></body></html>`))
	}))
	defer srv.Close()

	store := newMemStore()
	job, err := NewImporter(store).ImportURL(context.Background(), types.ImportJobRequest{URL: srv.URL + "/jobs/1", Company: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "Staff Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Equal(t, types.ATSUnknown, job.ATS)
	assert.Equal(t, "url", job.Source)
}

func TestImportURL_LLMCompany(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><main><h1>SRE</h1><p>Join Initech in Austin.</p></main></body></html>`))
	}))
	defer srv.Close()

	fake := &llm.FakeClient{JSON: "```json\n{\"title\": \"Site Reliability Engineer\", \"company\": \" Initech \", \"location\": \"Austin\"}\n```"}
	job, err := NewImporter(newMemStore(), WithLLM(fake)).ImportURL(context.Background(), types.ImportJobRequest{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "SRE", job.Title)
	assert.Equal(t, "Initech", job.Company)
	assert.Equal(t, "Austin", job.Location)
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.TierLite, calls[0].Tier)
	assert.Contains(t, calls[0].Prompt, "Join Initech in Austin.")
}

func TestImportURL_UnreachablePageStillImports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := newMemStore()
	job, err := NewImporter(store).ImportURL(context.Background(), types.ImportJobRequest{URL: srv.URL + "/x"})
	require.NoError(t, err)
	assert.Empty(t, job.Title)
	assert.Equal(t, 1, store.calls)
}

func TestImportURL_Invalid(t *testing.T) {
	_, err := NewImporter(newMemStore()).ImportURL(context.Background(), types.ImportJobRequest{URL: "not-a-url"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestImportURL_GreenhouseSlugBecomesCompany(t *testing.T) {
	// A canceled context makes the page fetch fail without touching the network.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := NewImporter(newMemStore()).ImportURL(ctx, types.ImportJobRequest{
		URL:   "https://boards.greenhouse.io/acme/jobs/55",
		Title: "Engineer",
	})
	require.NoError(t, err)
	assert.Equal(t, types.ATSGreenhouse, job.ATS)
	assert.Equal(t, "acme", job.CompanySlug)
	assert.Equal(t, "acme", job.Company)
	assert.Equal(t, "Engineer", job.Title)
}

func TestGreenhouseBoard_ListJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/acme/jobs", r.URL.Path)
		_, _ = w.Write([]byte(`{"jobs": [
			{"absolute_url": "https://boards.greenhouse.io/acme/jobs/1", "title": "Engineer", "location": {"name": "Remote"}},
			{"absolute_url": "", "title": "Broken"},
			{"absolute_url": "https://boards.greenhouse.io/acme/jobs/2", "title": "Designer", "location": {"name": "NYC"}}
		]}`))
	}))
	defer srv.Close()

	board := &GreenhouseBoard{BaseURL: srv.URL + "/v1/boards", Client: srv.Client()}
	jobs, err := board.ListJobs(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "Engineer", jobs[0].Title)
	assert.Equal(t, "Remote", jobs[0].Location)
	assert.Equal(t, "acme", jobs[0].CompanySlug)
	assert.Equal(t, types.ATSGreenhouse, jobs[1].ATS)
}

func TestLeverBoard_ListJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/postings/acme", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("mode"))
		_, _ = w.Write([]byte(`[{"text": "Engineer", "hostedUrl": "https://jobs.lever.co/acme/1", "categories": {"location": "Berlin"}}]`))
	}))
	defer srv.Close()

	jobs, err := (&LeverBoard{BaseURL: srv.URL + "/v0/postings", Client: srv.Client()}).ListJobs(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, types.ATSLever, jobs[0].ATS)
	assert.Equal(t, "Berlin", jobs[0].Location)
}

func TestBoard_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := (&GreenhouseBoard{BaseURL: srv.URL, Client: srv.Client()}).ListJobs(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrHTTPRequestFailed)
}

type stubBoard struct{ jobs []types.JobPosting }

func (b stubBoard) ListJobs(context.Context, string) ([]types.JobPosting, error) { return b.jobs, nil }

func TestImportBoard(t *testing.T) {
	board := stubBoard{jobs: []types.JobPosting{
		{URL: "https://boards.greenhouse.io/acme/jobs/1"},
		{URL: "https://boards.greenhouse.io/acme/jobs/2"},
		{URL: "https://boards.greenhouse.io/acme/jobs/3"},
	}}
	store := newMemStore()
	store.fail = "https://boards.greenhouse.io/acme/jobs/2"
	imp := NewImporter(store, WithBoard(types.BoardSourceGreenhouse, board))

	result, err := imp.ImportBoard(context.Background(), types.ImportBoardRequest{Company: "acme"})
	require.NoError(t, err)
	assert.Equal(t, &BoardImportResult{Source: "greenhouse", Seen: 3, Saved: 2, Failed: 1}, result)

	result, err = imp.ImportBoard(context.Background(), types.ImportBoardRequest{Company: "acme", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Seen)

	_, err = imp.ImportBoard(context.Background(), types.ImportBoardRequest{})
	assert.Error(t, err)
}

const postingHTML = `<html><body><nav>Menu</nav><div id="content"><h1>Engineer</h1><p>Build   things.</p></div></body></html>`

func TestDescriptionFetcher_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(postingHTML))
	}))
	defer srv.Close()

	text, err := NewDescriptionFetcher(nil, nil, false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Build things.")
	assert.NotContains(t, text, "Menu")
}

func TestDescriptionFetcher_BrowserFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer srv.Close()

	rendered := `<html><body><main><h1>Engineer</h1><p>` + strings.Repeat("Rendered description. ", 40) + `</p></main></body></html>`
	launcher := &browser.StaticLauncher{Pages: map[string]string{srv.URL: rendered}}

	text, err := NewDescriptionFetcher(launcher, nil, false).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Rendered description.")
}

func TestDescriptionFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewDescriptionFetcher(nil, nil, false).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrHTTPRequestFailed)
}
