package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/applypilot/internal/llm"
)

// JobDetails is the structured output of LLM job detail extraction
type JobDetails struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
}

// ExtractJobDetails asks the model for title, company and location when the
// page markup does not expose them.
func ExtractJobDetails(ctx context.Context, client llm.Client, text string) (*JobDetails, error) {
	if client == nil {
		return nil, fmt.Errorf("LLM client required for job detail extraction")
	}

	prompt := llm.BuildExtractionPrompt(llm.JobDetailsSchema(), text)

	// Use TierLite for simple extraction task
	jsonResp, err := client.GenerateJSON(ctx, "", prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	jsonResp = llm.CleanJSONBlock(jsonResp)

	var details JobDetails
	if err := json.Unmarshal([]byte(jsonResp), &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w (content: %s)", err, jsonResp)
	}
	return &details, nil
}
