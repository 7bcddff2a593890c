// Package selection picks the next jobs a batch should attempt.
package selection

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/applypilot/internal/types"
)

// DefaultPageSize is how many jobs are read per store query.
const DefaultPageSize = 50

// DefaultClaimTTL is how long a claim shields a job from other runs.
const DefaultClaimTTL = 30 * time.Minute

// Store lists jobs and reports which have recorded attempts.
type Store interface {
	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, offset, limit int) ([]types.JobPosting, error)
	// AttemptedJobIDs returns the subset of ids with at least one recorded attempt.
	AttemptedJobIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

// Claimer leases jobs to a single run.
type Claimer interface {
	// ClaimJob returns false when another live owner holds the job or it already has an attempt.
	ClaimJob(ctx context.Context, jobID int64, owner string, ttl time.Duration) (bool, error)
	ReleaseClaims(ctx context.Context, owner string) error
}

// Selector chooses unattempted jobs.
type Selector struct {
	store    Store
	claimer  Claimer
	owner    string
	ttl      time.Duration
	pageSize int
	verbose  bool
}

// Option configures a Selector
type Option func(*Selector)

// WithClaims leases each selected job to owner for ttl.
func WithClaims(claimer Claimer, owner string, ttl time.Duration) Option {
	return func(s *Selector) {
		s.claimer = claimer
		s.owner = owner
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPageSize sets how many jobs are read per query.
func WithPageSize(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithVerbose enables detailed logging.
func WithVerbose(verbose bool) Option {
	return func(s *Selector) { s.verbose = verbose }
}

// New returns a Selector reading from store.
func New(store Store, opts ...Option) *Selector {
	s := &Selector{store: store, ttl: DefaultClaimTTL, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns up to limit jobs, newest first. With excludeAttempted, jobs
// that have any recorded attempt are skipped. With claims configured, jobs held
// by another run are skipped too.
func (s *Selector) Select(ctx context.Context, limit int, excludeAttempted bool) ([]types.JobPosting, error) {
	if limit <= 0 {
		return nil, nil
	}

	var picked []types.JobPosting
	for offset := 0; len(picked) < limit; offset += s.pageSize {
		page, err := s.store.ListJobs(ctx, offset, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(page) == 0 {
			break
		}

		attempted := map[int64]bool{}
		if excludeAttempted {
			ids := make([]int64, len(page))
			for i, j := range page {
				ids[i] = j.ID
			}
			attempted, err = s.store.AttemptedJobIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("failed to load attempts: %w", err)
			}
		}

		for _, job := range page {
			if len(picked) == limit {
				break
			}
			if attempted[job.ID] {
				continue
			}
			if s.claimer != nil {
				ok, err := s.claimer.ClaimJob(ctx, job.ID, s.owner, s.ttl)
				if err != nil {
					return nil, fmt.Errorf("failed to claim job %d: %w", job.ID, err)
				}
				if !ok {
					if s.verbose {
						log.Printf("[SELECT] Job %d is held by another run", job.ID)
					}
					continue
				}
			}
			picked = append(picked, job)
		}

		if len(page) < s.pageSize {
			break
		}
	}

	if s.verbose {
		log.Printf("[SELECT] Picked %d job(s) (limit=%d, exclude_attempted=%v)", len(picked), limit, excludeAttempted)
	}
	return picked, nil
}

// Release drops every claim held by this selector's owner.
func (s *Selector) Release(ctx context.Context) error {
	if s.claimer == nil {
		return nil
	}
	return s.claimer.ReleaseClaims(ctx, s.owner)
}
