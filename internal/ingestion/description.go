package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/fetch"
)

// renderWait bounds the wait for a JavaScript-rendered posting to settle.
const renderWait = 10 * time.Second

// DescriptionFetcher retrieves the plain text of a job posting. It uses plain
// HTTP first and, when a launcher is configured, re-renders pages whose text
// is too short to be the real description.
type DescriptionFetcher struct {
	launcher browser.Launcher
	opts     *fetch.Options
	verbose  bool
}

// NewDescriptionFetcher returns a fetcher. launcher may be nil.
func NewDescriptionFetcher(launcher browser.Launcher, opts *fetch.Options, verbose bool) *DescriptionFetcher {
	return &DescriptionFetcher{launcher: launcher, opts: opts, verbose: verbose}
}

// Fetch returns the cleaned description text for urlStr.
func (f *DescriptionFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	family := fetch.DetectATS(urlStr)
	contentSelectors := fetch.PlatformContentSelectors(family)
	noiseSelectors := fetch.PlatformNoiseSelectors(family)
	if f.verbose {
		log.Printf("[FETCH] %s (platform %s)", urlStr, family)
	}

	result, err := fetch.URL(ctx, urlStr, f.opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}
	text, err := fetch.ExtractMainText(result.HTML, contentSelectors, noiseSelectors...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}

	if f.launcher != nil && fetch.ShouldUseBrowser(text) {
		if f.verbose {
			log.Printf("[FETCH] Content too short (%d chars < %d), rendering in browser", len(text), fetch.MinContentLength)
		}
		rendered, err := f.render(ctx, result.URL)
		if err != nil {
			log.Printf("[FETCH] Browser rendering failed, using HTTP content: %v", err)
		} else if browserText, err := fetch.ExtractMainText(rendered, contentSelectors, noiseSelectors...); err == nil {
			text = browserText
		}
	}
	return CleanText(text), nil
}

func (f *DescriptionFetcher) render(ctx context.Context, urlStr string) (string, error) {
	session, err := f.launcher.Launch(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = session.Close() }()

	page := session.Page()
	if err := page.Navigate(ctx, urlStr); err != nil {
		return "", err
	}
	if err := page.WaitIdle(ctx, renderWait); err != nil && f.verbose {
		log.Printf("[FETCH] Continuing after idle wait: %v", err)
	}
	return page.HTML(ctx)
}
