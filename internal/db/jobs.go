package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/applypilot/internal/types"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, url, source, company, company_slug, title, location, ats_type, created_at`

func scanJob(row pgx.Row) (*types.JobPosting, error) {
	var j types.JobPosting
	var ats string
	if err := row.Scan(&j.ID, &j.URL, &j.Source, &j.Company, &j.CompanySlug, &j.Title, &j.Location, &ats, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.ATS = types.ATSFamily(ats)
	return &j, nil
}

// InsertJob stores a posting, keyed by URL. Importing a URL again fills in
// enrichment fields that were blank and returns the existing row.
func (db *DB) InsertJob(ctx context.Context, j *types.JobPosting) (*types.JobPosting, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (url, source, company, company_slug, title, location, ats_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (url) DO UPDATE SET
		     company = COALESCE(NULLIF(jobs.company, ''), EXCLUDED.company),
		     company_slug = COALESCE(NULLIF(jobs.company_slug, ''), EXCLUDED.company_slug),
		     title = COALESCE(NULLIF(jobs.title, ''), EXCLUDED.title),
		     location = COALESCE(NULLIF(jobs.location, ''), EXCLUDED.location)
		 RETURNING `+jobColumns,
		j.URL, j.Source, j.Company, j.CompanySlug, j.Title, j.Location, j.ATS.String(),
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id int64) (*types.JobPosting, error) {
	job, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs newest first
func (db *DB) ListJobs(ctx context.Context, offset, limit int) ([]types.JobPosting, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, id DESC OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.JobPosting
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
