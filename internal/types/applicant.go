// Package types provides type definitions for structured data used throughout the applypilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// ApplicantProfile is the read-only identity and skill set used to fill forms
type ApplicantProfile struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Location   string   `json:"location,omitempty"`
	Skills     []string `json:"skills"`
	ResumePath string   `json:"resume_path,omitempty"`
}

// ExperienceFact is a pre-authored true statement. Drafted answers may only draw on these.
type ExperienceFact struct {
	ID   int64    `json:"id"`
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// Identity holds the structured short-answer values typed into standard form fields
type Identity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Identity splits the profile name into first/last and applies placeholder defaults
// for missing values.
func (p *ApplicantProfile) Identity() Identity {
	parts := strings.Fields(p.Name)
	first, last := "Your", "Name"
	if len(parts) > 0 {
		first = parts[0]
		last = "Name"
		if len(parts) > 1 {
			last = strings.Join(parts[1:], " ")
		}
	}
	email := p.Email
	if email == "" {
		email = "you@example.com"
	}
	phone := p.Phone
	if phone == "" {
		phone = "+1-555-000-0000"
	}
	return Identity{FirstName: first, LastName: last, Email: email, Phone: phone}
}

// ParseSkills splits a comma-separated skill list, trimming blanks and dropping
// case-insensitive duplicates while keeping first-seen order.
func ParseSkills(csv string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range strings.Split(csv, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
