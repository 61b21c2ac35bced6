package fetcher

import (
	"fmt"
	"strings"
)

// TransportError reports an unreachable API or a non-2xx HTTP status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a well-formed response that signals an application failure.
type APIError struct {
	Status  string
	Message string
	Result  string
}

// Error prefers the explorer's result text, which carries the useful detail
// (e.g. "Max rate limit reached"), then the message.
func (e *APIError) Error() string {
	if r := strings.TrimSpace(e.Result); r != "" {
		return r
	}
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	return "API Error"
}
