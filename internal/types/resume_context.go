package types

// ResumeContext is the structured content a tailored resume is rendered from.
// Every bullet must trace back to an ExperienceFact.
type ResumeContext struct {
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Phone      string          `json:"phone"`
	Location   string          `json:"location,omitempty"`
	Headline   string          `json:"headline"`
	Summary    string          `json:"summary"`
	Skills     []string        `json:"skills"`
	Highlights []ResumeSection `json:"highlights"`
}

// ResumeSection groups bullets under a heading
type ResumeSection struct {
	Heading string   `json:"heading"`
	Bullets []string `json:"bullets"`
}
