package httpclient

import (
	goerrors "errors"
	"fmt"

	ierr "github.com/flexprice/reconciler/internal/errors"
)

// Error is a non-2xx response from a downstream service
type Error struct {
	StatusCode int
	Response   []byte
	err        error
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) Error() string {
	return e.err.Error()
}

// NewError creates an error marked as ErrHTTPClient
func NewError(statusCode int, response []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Response:   response,
		err: ierr.NewError(fmt.Sprintf("unexpected status %d", statusCode)).
			WithReportableDetails(map[string]any{
				"status_code": statusCode,
				"response":    string(response),
			}).
			Mark(ierr.ErrHTTPClient),
	}
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if goerrors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
