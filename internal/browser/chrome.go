package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	hitAttr   = "data-applypilot-hit"
	idlePoll  = 250 * time.Millisecond
	idleQuiet = 2
)

// ChromeLauncher starts headless Chrome sessions through chromedp.
type ChromeLauncher struct {
	opts Options
}

// NewChromeLauncher returns a launcher with defaults applied to opts.
func NewChromeLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{opts: opts.withDefaults()}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(l.opts.UserAgent),
		chromedp.WindowSize(1280, 1800),
	)
}

// Launch starts one browser process with a single tab. The session lives until
// Close or until ctx is cancelled.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if l.opts.Verbose {
		log.Printf("[BROWSER] Session started (headless=%v)", l.opts.Headless)
	}

	return &chromeSession{
		page: &chromePage{ctx: tabCtx, opts: l.opts},
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}, nil
}

// PrintPDF renders an HTML document to a PDF file at outPath.
func (l *ChromeLauncher) PrintPDF(ctx context.Context, html string, outPath string) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()
	tabCtx, cancel := context.WithTimeout(tabCtx, l.opts.NavigationTimeout)
	defer cancel()

	var buf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(0.5).
				WithMarginBottom(0.5).
				WithMarginLeft(0.6).
				WithMarginRight(0.6).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to print PDF: %w", err)
	}
	if err := os.WriteFile(outPath, buf, 0644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

type chromeSession struct {
	page   *chromePage
	cancel context.CancelFunc
}

func (s *chromeSession) Page() Page { return s.page }

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}

type chromePage struct {
	ctx  context.Context
	opts Options
	hits atomic.Int64
}

// run executes actions on the tab, bounded by timeout and cancelled with ctx.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{URL: url, Message: "page did not load", Cause: err}
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to snapshot DOM: %w", err)
	}
	return html, nil
}

// jsArgs renders Go values as a JavaScript argument list.
func jsArgs(args ...any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		b, _ := json.Marshal(a)
		parts[i] = string(b)
	}
	return strings.Join(parts, ", ")
}

const resolveScript = `(function(css, text, attr, tag) {
	const want = (text || '').toLowerCase();
	for (const el of document.querySelectorAll(css)) {
		if (want) {
			const got = (el.innerText || el.value || el.textContent || '').toLowerCase();
			if (!got.includes(want)) continue;
		}
		el.setAttribute(attr, tag);
		return true;
	}
	return false;
})(%s)`

// resolve tags the first element matching q and returns a selector addressing it.
func (p *chromePage) resolve(ctx context.Context, q Query) (string, error) {
	tag := fmt.Sprintf("h%d", p.hits.Add(1))
	var found bool
	script := fmt.Sprintf(resolveScript, jsArgs(q.CSS, q.Text, hitAttr, tag))
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", q, err)
	}
	if !found {
		return "", fmt.Errorf("%s: %w", q, ErrNotFound)
	}
	return fmt.Sprintf(`[%s=%q]`, hitAttr, tag), nil
}

func (p *chromePage) Exists(ctx context.Context, q Query) (bool, error) {
	_, err := p.resolve(ctx, q)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *chromePage) Attribute(ctx context.Context, q Query, name string) (string, bool, error) {
	sel, err := p.resolve(ctx, q)
	if err != nil {
		return "", false, err
	}
	var value string
	var ok bool
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.AttributeValue(sel, name, &value, &ok, chromedp.ByQuery)); err != nil {
		return "", false, fmt.Errorf("failed to read %s of %s: %w", name, q, err)
	}
	return value, ok, nil
}

const markVisibleScript = `(function(css, attr) {
	document.querySelectorAll('[' + attr + ']').forEach(el => el.removeAttribute(attr));
	let n = 0;
	for (const el of document.querySelectorAll(css)) {
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (rect.width === 0 && rect.height === 0) continue;
		n++;
		el.setAttribute(attr, String(n));
	}
	return n;
})(%s)`

func (p *chromePage) MarkVisible(ctx context.Context, css, attr string) (int, error) {
	var n int
	script := fmt.Sprintf(markVisibleScript, jsArgs(css, attr))
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("failed to mark visible %s: %w", css, err)
	}
	return n, nil
}

// fillScript assigns through the native value setter so framework-controlled
// inputs observe the change, then dispatches input and change events.
const fillScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el || el.readOnly || el.disabled) return false;
	const proto = el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (!desc || !desc.set) return false;
	el.focus();
	desc.set.call(el, value);
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return el.value === value;
})(%s)`

func (p *chromePage) Fill(ctx context.Context, q Query, text string) error {
	sel, err := p.resolve(ctx, q)
	if err != nil {
		return err
	}
	var ok bool
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(fmt.Sprintf(fillScript, jsArgs(sel, text)), &ok)); err != nil {
		return fmt.Errorf("failed to fill %s: %w", q, err)
	}
	if !ok {
		return fmt.Errorf("fill of %s was rejected", q)
	}
	return nil
}

func (p *chromePage) TypeText(ctx context.Context, q Query, text string) error {
	sel, err := p.resolve(ctx, q)
	if err != nil {
		return err
	}
	err = p.run(ctx, p.opts.ActionTimeout,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(kb.Delete),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("failed to type into %s: %w", q, err)
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, q Query) error {
	sel, err := p.resolve(ctx, q)
	if err != nil {
		return err
	}
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", q, err)
	}
	return nil
}

func (p *chromePage) UploadFile(ctx context.Context, q Query, path string) error {
	sel, err := p.resolve(ctx, q)
	if err != nil {
		return err
	}
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.SetUploadFiles(sel, []string{path}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return nil
}

type loadState struct {
	Ready     string `json:"ready"`
	Resources int    `json:"resources"`
}

const loadStateScript = `({ready: document.readyState, resources: performance.getEntriesByType('resource').length})`

// WaitIdle polls until the document is complete and no new resource entries
// appear for idleQuiet consecutive polls. Evaluation errors while a new
// document is loading are ignored.
func (p *chromePage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	last, quiet := -1, 0
	for time.Now().Before(deadline) {
		var st loadState
		err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(loadStateScript, &st))
		if err == nil && st.Ready == "complete" && st.Resources == last {
			quiet++
			if quiet >= idleQuiet {
				return nil
			}
		} else {
			quiet = 0
		}
		last = st.Resources

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(idlePoll):
		}
	}
	return fmt.Errorf("network did not settle within %s", timeout)
}

const visibleTextScript = `(function() {
	const out = [];
	if (!document.body) return out;
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT);
	let node;
	while ((node = walker.nextNode())) {
		const text = node.textContent.trim();
		const el = node.parentElement;
		if (!text || !el) continue;
		if (['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE'].includes(el.tagName)) continue;
		const style = window.getComputedStyle(el);
		const rect = el.getBoundingClientRect();
		if (style.display === 'none' || style.visibility === 'hidden') continue;
		if (rect.width === 0 && rect.height === 0) continue;
		out.push((el.innerText || text).trim());
	}
	return out;
})()`

func (p *chromePage) VisibleTextMatching(ctx context.Context, pattern *regexp.Regexp) (string, error) {
	var blocks []string
	if err := p.run(ctx, p.opts.ActionTimeout, chromedp.Evaluate(visibleTextScript, &blocks)); err != nil {
		return "", fmt.Errorf("failed to read visible text: %w", err)
	}
	for _, b := range blocks {
		if pattern.MatchString(b) {
			return strings.TrimSpace(b), nil
		}
	}
	return "", nil
}

func (p *chromePage) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, p.opts.NavigationTimeout, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}
