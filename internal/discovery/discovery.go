// Package discovery finds the answerable long-answer fields on an application
// form and derives a stable key for each one from its surrounding labels.
package discovery

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/applypilot/internal/browser"
	"github.com/jonathan/applypilot/internal/types"
)

// OrdinalAttr is stamped onto every visible long-answer field, numbering them
// 1..n in DOM order. Fill passes address fields by this ordinal.
const OrdinalAttr = "data-applypilot-ordinal"

// LongAnswerSelector matches long-answer fields.
const LongAnswerSelector = "textarea"

// FieldQuery addresses the long-answer field stamped with ordinal n.
func FieldQuery(n int) browser.Query {
	return browser.CSS(fmt.Sprintf(`%s[%s="%d"]`, LongAnswerSelector, OrdinalAttr, n))
}

// Field is a stamped field with its resolved label.
type Field struct {
	Ordinal  int
	Label    string // empty when no resolver matched
	Resolver string
}

// Key returns the label, or the synthetic question_{n} key when unlabeled.
func (f Field) Key() string {
	if f.Label != "" {
		return f.Label
	}
	return types.SyntheticKey(f.Ordinal)
}

// Discoverer locates long-answer fields on the current page.
type Discoverer struct {
	resolvers []Resolver
	verbose   bool
}

// New returns a Discoverer with the default resolvers.
func New(verbose bool) *Discoverer {
	return &Discoverer{resolvers: DefaultResolvers(), verbose: verbose}
}

// NewWithResolvers returns a Discoverer using the given resolver order.
func NewWithResolvers(verbose bool, resolvers ...Resolver) *Discoverer {
	return &Discoverer{resolvers: resolvers, verbose: verbose}
}

// Discover returns one prompt per visible long-answer field in DOM order.
// Every prompt has a non-empty key.
func (d *Discoverer) Discover(ctx context.Context, page browser.Page) ([]types.FormPrompt, error) {
	fields, err := d.Fields(ctx, page)
	if err != nil {
		return nil, err
	}
	prompts := make([]types.FormPrompt, len(fields))
	for i, f := range fields {
		prompts[i] = types.FormPrompt{Key: f.Key(), Kind: types.PromptLongAnswer, Ordinal: f.Ordinal}
	}
	if d.verbose {
		log.Printf("[DISCOVER] Found %d long-answer field(s): %v", len(prompts), types.PromptKeys(prompts))
	}
	return prompts, nil
}

// Fields stamps the visible long-answer fields and resolves their labels from
// a DOM snapshot. Stamping again renumbers from 1.
func (d *Discoverer) Fields(ctx context.Context, page browser.Page) ([]Field, error) {
	n, err := page.MarkVisible(ctx, LongAnswerSelector, OrdinalAttr)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp fields: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return d.FieldsFromHTML(html)
}

// FieldsFromHTML resolves labels for fields already stamped with OrdinalAttr.
func (d *Discoverer) FieldsFromHTML(html string) ([]Field, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM snapshot: %w", err)
	}

	var fields []Field
	doc.Find("[" + OrdinalAttr + "]").Each(func(_ int, el *goquery.Selection) {
		ord, err := strconv.Atoi(el.AttrOr(OrdinalAttr, ""))
		if err != nil || ord < 1 {
			return
		}
		f := Field{Ordinal: ord}
		for _, r := range d.resolvers {
			if label, ok := r.Resolve(doc.Selection, el); ok {
				f.Label = label
				f.Resolver = r.Name
				break
			}
		}
		fields = append(fields, f)
	})
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Ordinal < fields[j].Ordinal })
	return fields, nil
}
