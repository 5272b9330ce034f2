package remote

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks operations whose remote endpoint is not known
var ErrUnsupported = errors.New("remote operation not supported")

// RemoteError is a non-success response that was not retried, or the last one after retries ran out
type RemoteError struct {
	Method     Method
	StatusCode int
	Body       string
	// RateLimited is set when StatusCode matched the client's RetryPolicy.RateLimitStatus
	RateLimited bool
}

func (e *RemoteError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Method, e.StatusCode, body)
}

// UnsupportedError is returned by capability operations that have no known endpoint
type UnsupportedError struct {
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: endpoint not discovered", e.Operation)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// IsRateLimited reports whether err is a response the client classified as rate limited
func IsRateLimited(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.RateLimited
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a RemoteError
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
