// Package navigation resolves where a posting's application form actually lives.
// Career sites often wrap the ATS form in their own page or an iframe, so the
// navigator tries an ordered list of strategies and stops at the first success.
package navigation

import (
	"context"
	"log"
	"net/url"
	"strings"
	"unicode"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/fetch"
)

// ATSDomain is the host the supported form family is served from.
const ATSDomain = "greenhouse.io"

const embedBase = "https://boards.greenhouse.io/embed/job_app"

// Strategy names reported in a Resolution
const (
	StrategyEmbed   = "embed"
	StrategyDirect  = "direct"
	StrategyIframe  = "iframe"
	StrategyAnchor  = "anchor"
	StrategyWrapper = "wrapper"
	StrategyNone    = "none"
)

// Target is the posting being resolved.
type Target struct {
	PostingURL string
	OrgSlug    string
}

// Strategy attempts to bring the page to the form. It returns true when the page
// now shows the form. Errors are reported but never stop the chain.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, page browser.Page, target Target) (bool, error)
}

// Resolution reports which strategy located the form and where the page ended up.
type Resolution struct {
	Strategy string `json:"strategy"`
	URL      string `json:"url,omitempty"`
}

// Navigator runs strategies in order.
type Navigator struct {
	strategies []Strategy
	verbose    bool
}

// Option configures a Navigator
type Option func(*Navigator)

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(n *Navigator) { n.strategies = strategies }
}

// WithVerbose enables detailed logging.
func WithVerbose(verbose bool) Option {
	return func(n *Navigator) { n.verbose = verbose }
}

// DefaultStrategies returns embed, direct, iframe and anchor in that order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		EmbedStrategy{},
		DirectStrategy{},
		NewFrameStrategy(StrategyIframe, browser.CSS(`iframe[src*="greenhouse.io"]`), "src"),
		NewFrameStrategy(StrategyAnchor, browser.CSS(`a[href*="greenhouse.io"]`), "href"),
	}
}

// New returns a Navigator using the default strategies unless overridden.
func New(opts ...Option) *Navigator {
	n := &Navigator{strategies: DefaultStrategies()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Resolve brings page to the application form for postingURL. It never fails:
// when no strategy succeeds the page stays on whatever loaded last ("wrapper").
// When no navigation succeeded at all the result is "none", whatever address
// the tab reports, and discovery simply finds no fields.
func (n *Navigator) Resolve(ctx context.Context, page browser.Page, postingURL, orgSlug string) Resolution {
	target := Target{PostingURL: postingURL, OrgSlug: orgSlug}
	tracked := &loadTracker{Page: page}
	for _, s := range n.strategies {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.Apply(ctx, tracked, target)
		if err != nil {
			log.Printf("[NAVIGATE] Strategy %s failed for %s: %v", s.Name(), postingURL, err)
		}
		if ok {
			res := Resolution{Strategy: s.Name()}
			res.URL, _ = page.URL(ctx)
			if n.verbose {
				log.Printf("[NAVIGATE] Resolved %s via %s -> %s", postingURL, res.Strategy, res.URL)
			}
			return res
		}
	}

	current, _ := page.URL(ctx)
	if !tracked.loaded || blankURL(current) {
		log.Printf("[NAVIGATE] No page could be loaded for %s", postingURL)
		return Resolution{Strategy: StrategyNone}
	}
	if n.verbose {
		log.Printf("[NAVIGATE] Staying on wrapper page %s", current)
	}
	return Resolution{Strategy: StrategyWrapper, URL: current}
}

// loadTracker notes whether any navigation made through it succeeded.
type loadTracker struct {
	browser.Page
	loaded bool
}

func (p *loadTracker) Navigate(ctx context.Context, url string) error {
	if err := p.Page.Navigate(ctx, url); err != nil {
		return err
	}
	p.loaded = true
	return nil
}

// blankURL reports whether a tab address means nothing is loaded.
func blankURL(u string) bool {
	return u == "" || strings.HasPrefix(u, "about:")
}

// EmbedURL builds the embeddable form address for a job token and org slug.
// It is a pure function of its inputs.
func EmbedURL(token, slug string) string {
	q := url.Values{}
	q.Set("for", slug)
	q.Set("token", token)
	return embedBase + "?" + q.Encode()
}

// JobToken extracts the job identifier from a posting URL: the gh_jid query
// parameter, else the last purely numeric path segment.
func JobToken(postingURL string) (string, bool) {
	u, err := url.Parse(postingURL)
	if err != nil {
		return "", false
	}
	if jid := strings.TrimSpace(u.Query().Get("gh_jid")); jid != "" {
		return jid, true
	}
	segments := strings.Split(u.Path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if isDigits(segments[i]) {
			return segments[i], true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// OnATSDomain reports whether rawURL is served from the ATS domain.
func OnATSDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return fetch.OnDomain(u.Hostname(), ATSDomain)
}
