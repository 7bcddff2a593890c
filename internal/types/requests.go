package types

import (
	"github.com/go-playground/validator/v10"
)

// Resume modes accepted by a batch request
const (
	ResumeModeAI     = "ai"
	ResumeModeStatic = "static"
)

// BatchRequest is the input to one autopilot batch.
type BatchRequest struct {
	ProfileID    int64   `json:"profile_id" validate:"required,min=1"`
	Limit        int     `json:"limit" validate:"min=1,max=50"`
	ResumeMode   string  `json:"resume_mode" validate:"oneof=ai static"`
	Submit       bool    `json:"submit"`
	DelaySeconds float64 `json:"delay_seconds" validate:"min=0,max=10"`
}

// ApplyRequest previews or submits one chosen job.
type ApplyRequest struct {
	JobID      int64  `json:"job_id" validate:"required,min=1"`
	ProfileID  int64  `json:"profile_id" validate:"required,min=1"`
	ResumeMode string `json:"resume_mode" validate:"oneof=ai static"`
	Submit     bool   `json:"submit"`
}

// ImportJobRequest imports a single posting by URL.
type ImportJobRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Company string `json:"company,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Board sources accepted by ImportBoardRequest
const (
	BoardSourceGreenhouse = "greenhouse"
	BoardSourceLever      = "lever"
)

// ImportBoardRequest imports every posting on a company's public job board.
// Source defaults to greenhouse.
type ImportBoardRequest struct {
	Source  string `json:"source,omitempty" validate:"omitempty,oneof=greenhouse lever"`
	Company string `json:"company" validate:"required,min=1"`
	Limit   int    `json:"limit,omitempty" validate:"min=0"`
}

// Validate validates the BatchRequest using the validator.
func (r *BatchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ApplyRequest using the validator.
func (r *ApplyRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ImportJobRequest using the validator.
func (r *ImportJobRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ImportBoardRequest using the validator.
func (r *ImportBoardRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
