package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/applypilot/internal/types"
)

// -----------------------------------------------------------------------------
// Profile and Experience Bank Methods
// -----------------------------------------------------------------------------

// GetProfile retrieves an applicant profile, or nil if it does not exist
func (db *DB) GetProfile(ctx context.Context, id int64) (*types.ApplicantProfile, error) {
	var p types.ApplicantProfile
	var skills string
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, location, skills_csv, resume_path FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Location, &skills, &p.ResumePath)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p.Skills = types.ParseSkills(skills)
	return &p, nil
}

// UpsertProfile creates a profile when ID is zero and updates it otherwise.
// The stored ID is written back to p.
func (db *DB) UpsertProfile(ctx context.Context, p *types.ApplicantProfile) error {
	skills := strings.Join(p.Skills, ",")
	if p.ID == 0 {
		err := db.pool.QueryRow(ctx,
			`INSERT INTO profiles (name, email, phone, location, skills_csv, resume_path)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			p.Name, p.Email, p.Phone, p.Location, skills, p.ResumePath,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		return nil
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE profiles SET name = $2, email = $3, phone = $4, location = $5,
		        skills_csv = $6, resume_path = $7, updated_at = NOW()
		 WHERE id = $1`,
		p.ID, p.Name, p.Email, p.Phone, p.Location, skills, p.ResumePath,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %d not found", p.ID)
	}
	return nil
}

// AddExperienceFact appends a fact to the experience bank
func (db *DB) AddExperienceFact(ctx context.Context, f *types.ExperienceFact) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO experience_facts (text, tags) VALUES ($1, $2) RETURNING id`,
		strings.TrimSpace(f.Text), joinTags(f.Tags),
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to add experience fact: %w", err)
	}
	return nil
}

// ListExperienceFacts returns the experience bank in insertion order
func (db *DB) ListExperienceFacts(ctx context.Context) ([]types.ExperienceFact, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, text, tags FROM experience_facts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experience facts: %w", err)
	}
	defer rows.Close()

	var facts []types.ExperienceFact
	for rows.Next() {
		var f types.ExperienceFact
		var tags string
		if err := rows.Scan(&f.ID, &f.Text, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan experience fact: %w", err)
		}
		f.Tags = splitTags(tags)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
