package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/applypilot/internal/types"
)

// -----------------------------------------------------------------------------
// Attempt and Claim Methods
// -----------------------------------------------------------------------------

// RecordAttempt stores one application attempt. Any row excludes the job from
// later selection.
func (db *DB) RecordAttempt(ctx context.Context, a *types.Attempt) error {
	var profileID *int64
	if a.ProfileID != 0 {
		profileID = &a.ProfileID
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO applications (job_id, profile_id, run_id, status, confirmation_text,
		                           error_message, resume_version, notes, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		a.JobID, profileID, a.RunID, string(a.Status), a.Confirmation,
		a.Error, a.ResumeVersion, a.Notes, a.SubmittedAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// AttemptedJobIDs returns which of ids have at least one recorded attempt
func (db *DB) AttemptedJobIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT job_id FROM applications WHERE job_id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ListAttempts returns the attempts for a job, newest first
func (db *DB) ListAttempts(ctx context.Context, jobID int64) ([]types.Attempt, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_id, COALESCE(profile_id, 0), run_id, status, confirmation_text,
		        error_message, resume_version, notes, submitted_at, created_at
		 FROM applications WHERE job_id = $1 ORDER BY created_at DESC, id DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []types.Attempt
	for rows.Next() {
		var a types.Attempt
		var status string
		if err := rows.Scan(&a.JobID, &a.ProfileID, &a.RunID, &status, &a.Confirmation,
			&a.Error, &a.ResumeVersion, &a.Notes, &a.SubmittedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Status = types.Status(status)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ClaimJob leases a job to owner for ttl. It fails when another owner holds a
// live lease or the job already has an attempt.
func (db *DB) ClaimJob(ctx context.Context, jobID int64, owner string, ttl time.Duration) (bool, error) {
	tag, err := db.pool.Exec(ctx,
		`INSERT INTO job_claims (job_id, owner, expires_at)
		 SELECT $1::bigint, $2::text, NOW() + make_interval(secs => $3::double precision)
		 WHERE NOT EXISTS (SELECT 1 FROM applications a WHERE a.job_id = $1::bigint)
		 ON CONFLICT (job_id) DO UPDATE SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		 WHERE job_claims.expires_at < NOW() OR job_claims.owner = EXCLUDED.owner`,
		jobID, owner, ttl.Seconds(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseClaims drops every lease held by owner
func (db *DB) ReleaseClaims(ctx context.Context, owner string) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM job_claims WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to release claims: %w", err)
	}
	return nil
}
