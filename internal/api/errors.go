package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lnup/eventscout/internal/enrichment"
	"github.com/lnup/eventscout/internal/ingestion"
)

// ErrorResponse is the JSON body of every non-2xx answer.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// StatusForError maps pipeline errors onto HTTP status codes.
func StatusForError(err error) int {
	var apiErr *enrichment.APIError
	switch {
	case errors.Is(err, enrichment.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, enrichment.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, enrichment.ErrUnparseable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, enrichment.ErrCityRequired),
		errors.Is(err, ingestion.ErrCityRequired),
		errors.Is(err, enrichment.ErrInvalidURL),
		errors.Is(err, enrichment.ErrEmptyContent):
		return http.StatusBadRequest
	case errors.As(err, &apiErr), errors.Is(err, enrichment.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Status: status})
}

// writePipelineError reports err with its mapped status. Internal errors are
// not echoed to the client.
func writePipelineError(w http.ResponseWriter, err error) {
	status := StatusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	writeError(w, status, message)
}
