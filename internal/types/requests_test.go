package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     BatchRequest
		wantErr bool
	}{
		{"valid", BatchRequest{ProfileID: 1, Limit: 5, ResumeMode: "ai", DelaySeconds: 3}, false},
		{"static mode", BatchRequest{ProfileID: 1, Limit: 1, ResumeMode: "static"}, false},
		{"missing profile", BatchRequest{Limit: 5, ResumeMode: "ai"}, true},
		{"zero limit", BatchRequest{ProfileID: 1, Limit: 0, ResumeMode: "ai"}, true},
		{"limit too high", BatchRequest{ProfileID: 1, Limit: 51, ResumeMode: "ai"}, true},
		{"bad mode", BatchRequest{ProfileID: 1, Limit: 5, ResumeMode: "latex"}, true},
		{"delay too long", BatchRequest{ProfileID: 1, Limit: 5, ResumeMode: "ai", DelaySeconds: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestImportJobRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ImportJobRequest{URL: "https://boards.greenhouse.io/acme/jobs/123"}).Validate())
	assert.Error(t, (&ImportJobRequest{URL: "not a url"}).Validate())
	assert.Error(t, (&ImportJobRequest{}).Validate())
}

func TestImportBoardRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ImportBoardRequest{Company: "acme"}).Validate())
	assert.Error(t, (&ImportBoardRequest{}).Validate())
	assert.NoError(t, (&ImportBoardRequest{Source: BoardSourceLever, Company: "acme"}).Validate())
	assert.Error(t, (&ImportBoardRequest{Source: "workday", Company: "acme"}).Validate())
}

func TestApplyRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ApplyRequest{JobID: 3, ProfileID: 1, ResumeMode: ResumeModeStatic}).Validate())
	assert.Error(t, (&ApplyRequest{ProfileID: 1, ResumeMode: ResumeModeStatic}).Validate())
	assert.Error(t, (&ApplyRequest{JobID: 3, ResumeMode: ResumeModeAI}).Validate())
	assert.Error(t, (&ApplyRequest{JobID: 3, ProfileID: 1, ResumeMode: "latex"}).Validate())
}
