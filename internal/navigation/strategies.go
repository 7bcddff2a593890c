package navigation

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/applypilot/internal/browser"
)

// EmbedStrategy opens the embeddable form directly when a job token and org
// slug are both known.
type EmbedStrategy struct{}

// Name implements Strategy.
func (EmbedStrategy) Name() string { return StrategyEmbed }

// Apply implements Strategy.
func (EmbedStrategy) Apply(ctx context.Context, page browser.Page, target Target) (bool, error) {
	token, ok := JobToken(target.PostingURL)
	if !ok || target.OrgSlug == "" {
		return false, nil
	}
	if err := page.Navigate(ctx, EmbedURL(token, target.OrgSlug)); err != nil {
		return false, err
	}
	return true, nil
}

// DirectStrategy opens the posting URL as-is. It succeeds only when the page
// is already on the ATS domain; otherwise the wrapper stays loaded for the
// strategies that follow.
type DirectStrategy struct{}

// Name implements Strategy.
func (DirectStrategy) Name() string { return StrategyDirect }

// Apply implements Strategy.
func (DirectStrategy) Apply(ctx context.Context, page browser.Page, target Target) (bool, error) {
	if err := page.Navigate(ctx, target.PostingURL); err != nil {
		return false, err
	}
	current, err := page.URL(ctx)
	if err != nil {
		return false, err
	}
	return OnATSDomain(current), nil
}

// FrameStrategy follows an ATS link (iframe src or anchor href) found on the
// currently loaded wrapper page.
type FrameStrategy struct {
	name  string
	query browser.Query
	attr  string
}

// NewFrameStrategy returns a strategy that follows attr of the first element matching query.
func NewFrameStrategy(name string, query browser.Query, attr string) FrameStrategy {
	return FrameStrategy{name: name, query: query, attr: attr}
}

// Name implements Strategy.
func (s FrameStrategy) Name() string { return s.name }

// Apply implements Strategy.
func (s FrameStrategy) Apply(ctx context.Context, page browser.Page, _ Target) (bool, error) {
	ref, ok, err := page.Attribute(ctx, s.query, s.attr)
	if err != nil {
		if browser.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	ref = strings.TrimSpace(ref)
	if !ok || ref == "" {
		return false, nil
	}

	next, err := resolveRef(ctx, page, ref)
	if err != nil {
		return false, err
	}
	if err := page.Navigate(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// resolveRef makes ref absolute against the current page address.
func resolveRef(ctx context.Context, page browser.Page, ref string) (string, error) {
	current, err := page.URL(ctx)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %q: %w", current, err)
	}
	u, err := base.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid link %q: %w", ref, err)
	}
	return u.String(), nil
}
