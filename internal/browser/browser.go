// Package browser defines the page automation capability used to drive
// application forms, with a Chrome (chromedp) driver and a static goquery driver.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Defaults for browser operations
const (
	DefaultActionTimeout     = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
	DefaultUserAgent         = "Mozilla/5.0 (compatible; ApplyPilot/1.0)"
)

// ErrNotFound is returned when a query matches no element.
var ErrNotFound = errors.New("element not found")

// NavigationError represents a failed page navigation
type NavigationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *NavigationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("navigation to %s failed: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("navigation to %s failed: %s", e.URL, e.Message)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// Query locates the first element matching a CSS selector whose visible text
// (or value, for inputs) contains Text, compared case-insensitively.
type Query struct {
	CSS  string
	Text string
}

// CSS returns a query with no text filter.
func CSS(selector string) Query {
	return Query{CSS: selector}
}

func (q Query) String() string {
	if q.Text == "" {
		return q.CSS
	}
	return fmt.Sprintf("%s:has-text(%q)", q.CSS, q.Text)
}

// Page is a single browser tab.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Exists(ctx context.Context, q Query) (bool, error)
	// Attribute returns the attribute value of the first match; ok is false if the attribute is absent.
	Attribute(ctx context.Context, q Query, name string) (value string, ok bool, err error)
	// MarkVisible clears attr everywhere, then stamps 1-based ordinals onto visible
	// matches of css in DOM order. Returns the number stamped.
	MarkVisible(ctx context.Context, css, attr string) (int, error)
	// Fill sets the value of a form control the conventional way.
	Fill(ctx context.Context, q Query, text string) error
	// TypeText clicks the element, clears it with select-all + delete and types keystrokes.
	TypeText(ctx context.Context, q Query, text string) error
	Click(ctx context.Context, q Query) error
	UploadFile(ctx context.Context, q Query, path string) error
	// WaitIdle waits until network activity settles or timeout elapses.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// VisibleTextMatching returns the innermost visible text block matching pattern, or "".
	VisibleTextMatching(ctx context.Context, pattern *regexp.Regexp) (string, error)
	Screenshot(ctx context.Context, path string) error
}

// Session owns one page and the resources behind it.
type Session interface {
	Page() Page
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Options configures browser drivers
type Options struct {
	Headless          bool
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	UserAgent         string
	Verbose           bool
}

func (o Options) withDefaults() Options {
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = DefaultActionTimeout
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// IsNotFound reports whether err means a query matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
