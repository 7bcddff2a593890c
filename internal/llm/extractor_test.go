package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := BuildExtractionPrompt(JobDetailsSchema(), "Senior Engineer at Acme, Remote")

	assert.True(t, strings.HasPrefix(prompt, "You are an expert job posting parser."))
	assert.Contains(t, prompt, `"title": "string" (required) // Job title exactly as written,`)
	assert.Contains(t, prompt, `"location": "string" // Work location or 'Remote'`)
	assert.NotContains(t, prompt, `'Remote',`)
	assert.Contains(t, prompt, "Input text:\n\"\"\"\nSenior Engineer at Acme, Remote\n\"\"\"\n")
}

func TestBuildExtractionPrompt_DefaultType(t *testing.T) {
	schema := ExtractionSchema{Description: "d", Fields: []SchemaField{{Name: "x"}}}
	assert.Contains(t, BuildExtractionPrompt(schema, ""), `"x": string`)
}
