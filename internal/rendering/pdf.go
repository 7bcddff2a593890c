package rendering

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonathan/applypilot/internal/types"
)

// Printer converts an HTML document into a PDF file.
type Printer interface {
	PrintPDF(ctx context.Context, html string, outPath string) error
}

// PDFRenderer writes each rendered resume to a fresh file in OutDir.
type PDFRenderer struct {
	printer Printer
	outDir  string
	verbose bool
}

// NewPDFRenderer returns a renderer. With a nil printer the HTML document is
// written instead of a PDF.
func NewPDFRenderer(printer Printer, outDir string, verbose bool) *PDFRenderer {
	return &PDFRenderer{printer: printer, outDir: outDir, verbose: verbose}
}

// Render writes rc to resume_<uuid>.pdf (or .html) and returns the path.
func (r *PDFRenderer) Render(ctx context.Context, rc *types.ResumeContext) (string, error) {
	html, err := RenderHTML(rc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return "", &RenderError{Message: "failed to create output directory", Cause: err}
	}

	name := "resume_" + uuid.New().String()
	if r.printer == nil {
		path := filepath.Join(r.outDir, name+".html")
		if err := os.WriteFile(path, []byte(html), 0644); err != nil {
			return "", &RenderError{Message: "failed to write resume", Cause: err}
		}
		log.Printf("[RENDER] No PDF printer configured; wrote %s", path)
		return path, nil
	}

	path := filepath.Join(r.outDir, name+".pdf")
	if err := r.printer.PrintPDF(ctx, html, path); err != nil {
		return "", &RenderError{Message: fmt.Sprintf("failed to print %s", path), Cause: err}
	}
	if r.verbose {
		log.Printf("[RENDER] Wrote %s", path)
	}
	return path, nil
}
