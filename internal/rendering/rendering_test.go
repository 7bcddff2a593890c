package rendering

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/applypilot/internal/types"
)

var content = &types.ResumeContext{
	Name:     "Ada Lovelace",
	Email:    "ada@example.org",
	Phone:    "+1-555-0100",
	Headline: "Backend <engineer>",
	Summary:  "Builds payment systems & ledgers.",
	Skills:   []string{"Go", "PostgreSQL"},
	Highlights: []types.ResumeSection{
		{Heading: "Payments", Bullets: []string{"Migrated the ledger.", "Cut settlement time."}},
	},
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(content)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Ada Lovelace</h1>")
	assert.Contains(t, html, "Backend &lt;engineer&gt;")
	assert.Contains(t, html, "payment systems &amp; ledgers")
	assert.Contains(t, html, "ada@example.org · &#43;1-555-0100")
	assert.Contains(t, html, "Go, PostgreSQL")
	assert.Contains(t, html, "<li>Cut settlement time.</li>")
}

func TestRenderHTML_OmitsEmptySections(t *testing.T) {
	html, err := RenderHTML(&types.ResumeContext{Name: "A"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<h2>")
}

func TestRenderHTML_Nil(t *testing.T) {
	_, err := RenderHTML(nil)
	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}

type fakePrinter struct {
	html string
	err  error
}

func (p *fakePrinter) PrintPDF(_ context.Context, html string, outPath string) error {
	p.html = html
	if p.err != nil {
		return p.err
	}
	return os.WriteFile(outPath, []byte("%PDF-1.7"), 0644)
}

func TestPDFRenderer_Render(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	printer := &fakePrinter{}
	r := NewPDFRenderer(printer, dir, false)

	first, err := r.Render(context.Background(), content)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), content)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(filepath.Base(first), "resume_"))
	assert.Equal(t, ".pdf", filepath.Ext(first))
	assert.FileExists(t, first)
	assert.Contains(t, printer.html, "Ada Lovelace")
}

func TestPDFRenderer_PrinterFailure(t *testing.T) {
	r := NewPDFRenderer(&fakePrinter{err: errors.New("chrome missing")}, t.TempDir(), false)
	_, err := r.Render(context.Background(), content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome missing")
}

func TestPDFRenderer_NoPrinterWritesHTML(t *testing.T) {
	path, err := NewPDFRenderer(nil, t.TempDir(), false).Render(context.Background(), content)
	require.NoError(t, err)
	assert.Equal(t, ".html", filepath.Ext(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Ada Lovelace")
}

type fakeDrafter struct {
	rc  *types.ResumeContext
	err error
}

func (d fakeDrafter) ResumeContext(context.Context, *types.ApplicantProfile, []types.ExperienceFact, string) (*types.ResumeContext, error) {
	return d.rc, d.err
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(fakeDrafter{rc: content}, NewPDFRenderer(&fakePrinter{}, t.TempDir(), false))
	path, err := b.Build(context.Background(), &types.ApplicantProfile{}, nil, "jd")
	require.NoError(t, err)
	assert.FileExists(t, path)

	b = NewBuilder(fakeDrafter{err: errors.New("boom")}, NewPDFRenderer(&fakePrinter{}, t.TempDir(), false))
	_, err = b.Build(context.Background(), &types.ApplicantProfile{}, nil, "jd")
	assert.ErrorContains(t, err, "failed to draft resume content")
}
