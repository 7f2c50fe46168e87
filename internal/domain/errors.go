package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrMissingToken means the bootstrap page carried no security token.
	ErrMissingToken = errors.New("missing security token")

	// ErrIdentityRetired is returned for identities retired after exhausting retries.
	ErrIdentityRetired = errors.New("proxy identity retired")

	// ErrPoolExhausted means the proxy pool cannot issue any identity. It is a
	// configuration problem and stops the whole batch.
	ErrPoolExhausted = errors.New("proxy pool exhausted")
)

// RequestFailedError is returned once an authenticated request ran out of retries.
type RequestFailedError struct {
	Status int
	URL    string
	Err    error // last transport error, if the final attempt had no response
}

func (e *RequestFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s failed with status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("request %s failed with status %d", e.URL, e.Status)
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

type NoLocationFoundError struct {
	Query string
}

func (e *NoLocationFoundError) Error() string {
	return fmt.Sprintf("nothing found for %q", e.Query)
}

// PaginationError wraps the fetch failure that stopped a listing walk.
type PaginationError struct {
	URL string
	Err error
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination stopped at %s: %v", e.URL, e.Err)
}

func (e *PaginationError) Unwrap() error { return e.Err }

// SinkError is a failed insert of a single hotel.
type SinkError struct {
	Key string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("insert hotel %s: %v", e.Key, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// ErrorLabel maps an error to a short label for logs and metrics.
func ErrorLabel(err error) string {
	if err == nil {
		return "none"
	}
	var (
		reqFailed *RequestFailedError
		noLoc     *NoLocationFoundError
		sinkErr   *SinkError
	)
	switch {
	case errors.Is(err, ErrPoolExhausted):
		return "pool_exhausted"
	case errors.Is(err, ErrIdentityRetired):
		return "identity_retired"
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.As(err, &noLoc):
		return "no_location"
	case errors.As(err, &reqFailed):
		return "request_failed"
	case errors.As(err, &sinkErr):
		return "sink"
	}
	var pagErr *PaginationError
	if errors.As(err, &pagErr) {
		return "pagination"
	}
	return "other"
}
