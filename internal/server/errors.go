package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/applypilot/internal/autopilot"
	"github.com/jonathan/applypilot/internal/ingestion"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		fields     validator.ValidationErrors
	)
	switch {
	case errors.Is(err, autopilot.ErrBatchInProgress), errors.Is(err, autopilot.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.Is(err, autopilot.ErrProfileNotFound), errors.Is(err, autopilot.ErrJobNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation), errors.As(err, &fields), errors.Is(err, ingestion.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrHTTPRequestFailed), errors.Is(err, ingestion.ErrContentExtractionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
