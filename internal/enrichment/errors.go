package enrichment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned before any network call when no API key is set.
	ErrNotConfigured = errors.New("language model API key not configured")

	// ErrRateLimited is returned once HTTP 429 persists through every retry.
	ErrRateLimited = errors.New("rate limit reached, please wait a minute and try again")

	// ErrUnparseable is returned by the extraction path when no array-shaped
	// JSON can be recovered from the model output.
	ErrUnparseable = errors.New("model response could not be parsed as a JSON array")

	// ErrEmptyResponse is returned when the model produced no text at all.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// APIError is a non-success HTTP response from the language-model API.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error (%d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Body)
}
