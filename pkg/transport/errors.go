package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyMessage is returned by PostMessage for blank text; no request is made.
var ErrEmptyMessage = errors.New("transport: message text is empty")

// NetworkError means the request never produced a response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RateLimitError is an HTTP 429 from the service.
type RateLimitError struct {
	Op     string
	Detail string
}

func (e *RateLimitError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: rate limited", e.Op)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Op, e.Detail)
}

// ServiceError is any other non-2xx response, or a 2xx whose body could not be used.
type ServiceError struct {
	Op     string
	Status int
	Detail string
}

func (e *ServiceError) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = "unknown status"
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: service error %d %s", e.Op, e.Status, text)
	}
	return fmt.Sprintf("%s: service error %d %s: %s", e.Op, e.Status, text, e.Detail)
}

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}
