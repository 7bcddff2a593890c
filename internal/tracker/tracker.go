// Package tracker appends application outcomes and picked leads to xlsx
// workbooks that the applicant reviews by hand.
package tracker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"
)

// Sheet names and header rows
const (
	ApplicationsSheet = "Applications"
	LeadsSheet        = "Leads"
)

// ApplicationHeaders is the header row of the applications sheet.
var ApplicationHeaders = []string{
	"company", "role", "date_applied", "job_url", "source", "ats_type",
	"confirmation_number", "status", "resume_version", "notes",
}

// LeadHeaders is the header row of the leads sheet.
var LeadHeaders = []string{"company", "title", "job_url", "ats_type", "imported_at"}

// lockRetry is how often a contended workbook lock is retried.
const lockRetry = 100 * time.Millisecond

// Row is one application outcome.
type Row struct {
	Company            string
	Role               string
	DateApplied        time.Time
	JobURL             string
	Source             string
	ATSType            string
	ConfirmationNumber string
	Status             string
	ResumeVersion      string
	Notes              string
}

// Lead is one picked job.
type Lead struct {
	Company    string
	Title      string
	JobURL     string
	ATSType    string
	ImportedAt time.Time
}

// Workbook appends rows to the applications and leads files. Appends are
// serialized in-process and across processes by a lock file next to each workbook.
type Workbook struct {
	applicationsPath string
	leadsPath        string
	now              func() time.Time
	mu               sync.Mutex
}

// New returns a Workbook writing to the given paths.
func New(applicationsPath, leadsPath string) *Workbook {
	return &Workbook{applicationsPath: applicationsPath, leadsPath: leadsPath, now: time.Now}
}

// ApplicationsPath returns the absolute applications workbook path.
func (w *Workbook) ApplicationsPath() string { return absPath(w.applicationsPath) }

// LeadsPath returns the absolute leads workbook path.
func (w *Workbook) LeadsPath() string { return absPath(w.leadsPath) }

// AppendApplication appends one outcome row and returns the workbook path.
func (w *Workbook) AppendApplication(ctx context.Context, row Row) (string, error) {
	applied := row.DateApplied
	if applied.IsZero() {
		applied = w.now()
	}
	values := []any{
		row.Company, row.Role, formatTime(applied), row.JobURL, row.Source, row.ATSType,
		row.ConfirmationNumber, row.Status, row.ResumeVersion, row.Notes,
	}
	path := w.ApplicationsPath()
	if err := w.appendRows(ctx, path, ApplicationsSheet, ApplicationHeaders, [][]any{values}); err != nil {
		return "", err
	}
	return path, nil
}

// AppendLeads appends one row per lead and returns the workbook path.
func (w *Workbook) AppendLeads(ctx context.Context, leads []Lead) (string, error) {
	rows := make([][]any, 0, len(leads))
	for _, l := range leads {
		imported := l.ImportedAt
		if imported.IsZero() {
			imported = w.now()
		}
		rows = append(rows, []any{l.Company, l.Title, l.JobURL, l.ATSType, formatTime(imported)})
	}
	path := w.LeadsPath()
	if err := w.appendRows(ctx, path, LeadsSheet, LeadHeaders, rows); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workbook) appendRows(ctx context.Context, path, sheet string, headers []string, rows [][]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create tracker directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", path)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := openOrCreate(path, sheet)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	existing, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	next := len(existing) + 1
	if len(existing) <= 1 && !headerMatches(existing, headers) {
		// Empty sheet or a stale single header row: rewrite the header.
		next = 1
		header := make([]any, len(headers))
		for i, h := range headers {
			header[i] = h
		}
		rows = append([][]any{header}, rows...)
	}

	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", next+i, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	log.Printf("[TRACKER] Appended %d row(s) to %s", len(rows), filepath.Base(path))
	return nil
}

func openOrCreate(path, sheet string) (*excelize.File, error) {
	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		idx, err := f.GetSheetIndex(sheet)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if idx < 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
			}
		}
		return f, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet %s: %w", sheet, err)
	}
	return f, nil
}

func headerMatches(rows [][]string, headers []string) bool {
	if len(rows) == 0 || len(rows[0]) != len(headers) {
		return false
	}
	for i, h := range headers {
		if rows[0][i] != h {
			return false
		}
	}
	return true
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
