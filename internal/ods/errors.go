package ods

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
)

var (
	ErrNoBaseURL   = errors.New("ods: base url missing")
	ErrNoAPIKey    = errors.New("ods: api key missing")
	ErrNoPushURL   = errors.New("ods: push url missing")
	ErrNoPushKey   = errors.New("ods: push key missing")
	ErrNoDeleteURL = errors.New("ods: delete url missing")
	ErrNoDataset   = errors.New("ods: dataset uid missing")
)

// maxErrorBody bounds how much of a failed response ends up in error messages.
const maxErrorBody = 512

// APIError is returned for any non-2xx response from the catalog.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("ods: %s failed with status %d: %s", e.Operation, e.StatusCode, body)
}

// handleAPIError maps a transport failure or a non-2xx response to an error.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("ods: %s: %w", operation, requestErr)
	}

	if !resp.IsSuccessState() {
		return &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       resp.String(),
		}
	}

	return nil
}
