package inference

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// retryableMarker tags errors from statusDoer so they are still
// recognised after the SDK flattens them into a string.
const retryableMarker = "(retryable)"

// retryableError marks a failure worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() + " " + retryableMarker }
func (e *retryableError) Unwrap() error { return e.err }

// statusDoer turns 429 and 5xx answers into retryable transport errors.
// Other responses pass through to the SDK untouched.
type statusDoer struct {
	client *http.Client
}

func (d *statusDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return nil, err
		}
		return nil, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &retryableError{err: fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return resp, nil
}

func isRetryable(err error) bool {
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	return strings.Contains(err.Error(), retryableMarker)
}
