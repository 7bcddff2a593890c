package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/jonathan/applypilot/internal/autopilot"
	"github.com/jonathan/applypilot/internal/ingestion"
	"github.com/jonathan/applypilot/internal/types"
)

// maxBodyBytes bounds request bodies; every accepted body is a small JSON object.
const maxBodyBytes = 1 << 20

// ImportBoardResponse is returned by POST /jobs/import-board.
type ImportBoardResponse struct {
	Company string `json:"company"`
	*ingestion.BoardImportResult
}

// decodeBody decodes a JSON object into dst. An empty body leaves dst unchanged.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// batchRequest builds a batch request from the configured defaults overlaid
// with the fields present in the body.
func (s *Server) batchRequest(r *http.Request) (types.BatchRequest, error) {
	req := s.defaults
	if err := decodeBody(r, &req); err != nil {
		return req, err
	}
	return req, req.Validate()
}

// handleRun executes one batch and returns its result. The batch runs to
// completion even if the client goes away.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	req, err := s.batchRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Invalid request: "+err.Error())
		return
	}

	result, err := s.runner.RunWithProgress(context.WithoutCancel(r.Context()), req, nil)
	if err != nil {
		log.Printf("[SERVER] Batch failed: %v", err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleRunStream executes one batch and streams progress via SSE.
func (s *Server) handleRunStream(w http.ResponseWriter, r *http.Request) {
	req, err := s.batchRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Invalid request: "+err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.runner.RunWithProgress(context.WithoutCancel(r.Context()), req, func(e autopilot.ProgressEvent) {
		sse.WriteProgress(e)
	})
	if err != nil {
		log.Printf("[SERVER] Batch failed: %v", err)
		sse.WriteError(err.Error())
		return
	}
	sse.WriteResult(result)
}

// handleApply previews or submits one chosen job. Profile and resume mode
// default to the batch defaults; submit defaults to false.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	req := types.ApplyRequest{ProfileID: s.defaults.ProfileID, ResumeMode: s.defaults.ResumeMode}
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), "Invalid request: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, HTTPStatus(err), "Invalid request: "+err.Error())
		return
	}

	result, err := s.runner.ApplyJob(context.WithoutCancel(r.Context()), req)
	if err != nil {
		log.Printf("[SERVER] Apply to job %d failed: %v", req.JobID, err)
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleImportJob saves a single posting by URL.
func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.errorResponse(w, http.StatusNotImplemented, "job import is not configured")
		return
	}
	var req types.ImportJobRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	job, err := s.importer.ImportURL(r.Context(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.metrics.Imported("url", 1)
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleImportBoard saves the postings of a company job board.
func (s *Server) handleImportBoard(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.errorResponse(w, http.StatusNotImplemented, "job import is not configured")
		return
	}
	var req types.ImportBoardRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := s.importer.ImportBoard(r.Context(), req)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.metrics.Imported(result.Source, result.Saved)
	s.jsonResponse(w, http.StatusOK, ImportBoardResponse{Company: req.Company, BoardImportResult: result})
}
