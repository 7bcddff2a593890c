package browser

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/applypilot/internal/fetch"
)

// StaticLauncher serves pages parsed with goquery instead of a live browser.
// Pages are looked up in Pages first and fetched over HTTP otherwise. Scripts
// never run, so only server-rendered forms are visible to it.
type StaticLauncher struct {
	Pages map[string]string
	Opts  Options
	// FillHook, when set, is consulted before every Fill; a non-nil error rejects the fill.
	FillHook func(q Query) error
	// TypeHook is the same for TypeText.
	TypeHook func(q Query) error
}

// NewStaticLauncher returns a launcher that fetches pages over HTTP.
func NewStaticLauncher(opts Options) *StaticLauncher {
	return &StaticLauncher{Opts: opts.withDefaults()}
}

// Launch opens a blank static page.
func (l *StaticLauncher) Launch(_ context.Context) (Session, error) {
	p := &StaticPage{launcher: l, opts: l.Opts.withDefaults()}
	return &staticSession{page: p}, nil
}

type staticSession struct {
	page *StaticPage
}

func (s *staticSession) Page() Page { return s.page }

func (s *staticSession) Close() error { return nil }

// Action is one recorded interaction with a StaticPage
type Action struct {
	Kind   string
	Target string
	Value  string
}

// StaticPage is a goquery document standing in for a browser tab. Interactions
// mutate the document and are recorded in Actions.
type StaticPage struct {
	launcher *StaticLauncher
	opts     Options

	mu      sync.Mutex
	url     string
	doc     *goquery.Document
	actions []Action
}

// Actions returns the interactions performed so far.
func (p *StaticPage) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

func (p *StaticPage) record(kind string, q Query, value string) {
	p.actions = append(p.actions, Action{Kind: kind, Target: q.String(), Value: value})
}

func (p *StaticPage) Navigate(ctx context.Context, target string) error {
	html, final, err := p.load(ctx, target)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &NavigationError{URL: target, Message: "failed to parse HTML", Cause: err}
	}

	p.mu.Lock()
	p.url = final
	p.doc = doc
	p.record("navigate", CSS(final), "")
	p.mu.Unlock()

	if p.opts.Verbose {
		log.Printf("[BROWSER] Static page loaded: %s", final)
	}
	return nil
}

func (p *StaticPage) load(ctx context.Context, target string) (string, string, error) {
	if html, ok := p.launcher.Pages[target]; ok {
		return html, target, nil
	}
	if err := ctx.Err(); err != nil {
		return "", "", &NavigationError{URL: target, Message: "cancelled", Cause: err}
	}
	result, err := fetch.URL(ctx, target, &fetch.Options{
		Timeout:   p.opts.NavigationTimeout,
		UserAgent: p.opts.UserAgent,
	})
	if err != nil {
		return "", "", &NavigationError{URL: target, Message: "fetch failed", Cause: err}
	}
	return result.HTML, result.URL, nil
}

func (p *StaticPage) document() (*goquery.Document, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	return p.doc, nil
}

func (p *StaticPage) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *StaticPage) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return doc.Html()
}

// find returns the first element matching q.
func (p *StaticPage) find(q Query) (*goquery.Selection, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	matches := doc.Find(q.CSS)
	if q.Text != "" {
		want := strings.ToLower(q.Text)
		matches = matches.FilterFunction(func(_ int, s *goquery.Selection) bool {
			got := s.Text()
			if got == "" {
				got, _ = s.Attr("value")
			}
			return strings.Contains(strings.ToLower(got), want)
		})
	}
	if matches.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", q, ErrNotFound)
	}
	return matches.First(), nil
}

func (p *StaticPage) Exists(_ context.Context, q Query) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.find(q); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *StaticPage) Attribute(_ context.Context, q Query, name string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(q)
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok, nil
}

var hiddenStyle = regexp.MustCompile(`(?i)(display\s*:\s*none|visibility\s*:\s*hidden)`)

// Visible reports whether neither s nor any ancestor is hidden by attribute,
// inline style or input type.
func Visible(s *goquery.Selection) bool {
	if t, _ := s.Attr("type"); strings.EqualFold(t, "hidden") {
		return false
	}
	for n := s; n.Length() > 0; n = n.Parent() {
		if _, hidden := n.Attr("hidden"); hidden {
			return false
		}
		if style, ok := n.Attr("style"); ok && hiddenStyle.MatchString(style) {
			return false
		}
	}
	return true
}

func (p *StaticPage) MarkVisible(_ context.Context, css, attr string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.document()
	if err != nil {
		return 0, err
	}
	doc.Find("[" + attr + "]").RemoveAttr(attr)
	n := 0
	doc.Find(css).Each(func(_ int, s *goquery.Selection) {
		if !Visible(s) {
			return
		}
		n++
		s.SetAttr(attr, fmt.Sprint(n))
	})
	return n, nil
}

func (p *StaticPage) setValue(sel *goquery.Selection, text string) {
	if goquery.NodeName(sel) == "textarea" {
		sel.SetText(text)
		return
	}
	sel.SetAttr("value", text)
}

func (p *StaticPage) Fill(_ context.Context, q Query, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(q)
	if err != nil {
		return err
	}
	if _, ro := sel.Attr("readonly"); ro {
		return fmt.Errorf("fill of %s was rejected", q)
	}
	if p.launcher.FillHook != nil {
		if err := p.launcher.FillHook(q); err != nil {
			return err
		}
	}
	p.setValue(sel, text)
	p.record("fill", q, text)
	return nil
}

func (p *StaticPage) TypeText(_ context.Context, q Query, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(q)
	if err != nil {
		return err
	}
	if _, disabled := sel.Attr("disabled"); disabled {
		return fmt.Errorf("failed to type into %s: element is disabled", q)
	}
	if p.launcher.TypeHook != nil {
		if err := p.launcher.TypeHook(q); err != nil {
			return err
		}
	}
	p.setValue(sel, text)
	p.record("type", q, text)
	return nil
}

// Click records the click. Submit controls navigate to the enclosing form's
// action and anchors follow their href.
func (p *StaticPage) Click(ctx context.Context, q Query) error {
	p.mu.Lock()
	sel, err := p.find(q)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.record("click", q, "")
	next := p.clickTarget(sel)
	p.mu.Unlock()

	if next == "" {
		return nil
	}
	return p.Navigate(ctx, next)
}

func (p *StaticPage) clickTarget(sel *goquery.Selection) string {
	var ref string
	switch goquery.NodeName(sel) {
	case "a":
		ref, _ = sel.Attr("href")
	case "button", "input":
		typ, _ := sel.Attr("type")
		typ = strings.ToLower(typ)
		if typ == "submit" || (goquery.NodeName(sel) == "button" && typ == "") {
			ref, _ = sel.Closest("form").Attr("action")
		}
	}
	if ref == "" {
		return ""
	}
	base, err := url.Parse(p.url)
	if err != nil {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

func (p *StaticPage) UploadFile(_ context.Context, q Query, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel, err := p.find(q)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	sel.SetAttr("data-uploaded", path)
	p.record("upload", q, path)
	return nil
}

// WaitIdle returns immediately; static pages have no network activity after load.
func (p *StaticPage) WaitIdle(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func (p *StaticPage) VisibleTextMatching(_ context.Context, pattern *regexp.Regexp) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	var found string
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		switch goquery.NodeName(s) {
		case "script", "style", "noscript", "template":
			return true
		}
		text := collapse(s.Text())
		if text == "" || !pattern.MatchString(text) || !Visible(s) {
			return true
		}
		// Prefer the innermost element carrying the match.
		inner := false
		s.Children().Each(func(_ int, c *goquery.Selection) {
			if pattern.MatchString(collapse(c.Text())) {
				inner = true
			}
		})
		if inner {
			return true
		}
		found = text
		return false
	})
	return found, nil
}

// Screenshot writes the current DOM snapshot to path.
func (p *StaticPage) Screenshot(ctx context.Context, path string) error {
	html, err := p.HTML(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
