package rendering

import (
	"context"
	"fmt"

	"github.com/jonathan/applypilot/internal/types"
)

// ContentDrafter produces tailored resume content.
type ContentDrafter interface {
	ResumeContext(ctx context.Context, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (*types.ResumeContext, error)
}

// Builder drafts resume content for one job and renders it to a file.
type Builder struct {
	drafter  ContentDrafter
	renderer *PDFRenderer
}

// NewBuilder returns a Builder.
func NewBuilder(drafter ContentDrafter, renderer *PDFRenderer) *Builder {
	return &Builder{drafter: drafter, renderer: renderer}
}

// Build returns the path of a freshly rendered resume tailored to jdText.
func (b *Builder) Build(ctx context.Context, profile *types.ApplicantProfile, facts []types.ExperienceFact, jdText string) (string, error) {
	rc, err := b.drafter.ResumeContext(ctx, profile, facts, jdText)
	if err != nil {
		return "", fmt.Errorf("failed to draft resume content: %w", err)
	}
	return b.renderer.Render(ctx, rc)
}
