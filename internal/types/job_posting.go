// Package types provides type definitions for structured data used throughout the applypilot system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// ATSFamily identifies the applicant tracking system hosting a posting's application form
type ATSFamily string

const (
	// ATSGreenhouse is the Greenhouse ATS, the only family with a form connector
	ATSGreenhouse ATSFamily = "greenhouse"
	// ATSLever is the Lever ATS
	ATSLever ATSFamily = "lever"
	// ATSAshby is the Ashby ATS
	ATSAshby ATSFamily = "ashby"
	// ATSWorkable is the Workable ATS
	ATSWorkable ATSFamily = "workable"
	// ATSWorkday is the Workday ATS
	ATSWorkday ATSFamily = "workday"
	// ATSUnknown is an unrecognized platform
	ATSUnknown ATSFamily = "unknown"
)

// Supported reports whether forms of this family can be filled and submitted.
func (f ATSFamily) Supported() bool {
	return f == ATSGreenhouse
}

// String returns the family name, or "unknown" when empty.
func (f ATSFamily) String() string {
	if f == "" {
		return string(ATSUnknown)
	}
	return string(f)
}

// JobPosting is an imported job posting. Rows are immutable after import except
// for enrichment fields (Title, Location, Company).
type JobPosting struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	Company     string    `json:"company,omitempty"`
	CompanySlug string    `json:"company_slug,omitempty"`
	Title       string    `json:"title,omitempty"`
	Location    string    `json:"location,omitempty"`
	ATS         ATSFamily `json:"ats_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrgSlug returns the organization slug used to build embed URLs. Falls back to
// a slugified company name when no explicit slug was recorded at import.
func (j *JobPosting) OrgSlug() string {
	if j.CompanySlug != "" {
		return j.CompanySlug
	}
	return Slugify(j.Company)
}

// Slugify lowercases s and drops everything except ASCII letters and digits.
func Slugify(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
