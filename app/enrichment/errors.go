package enrichment

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Code is one of the closed set of enrichment error codes
type Code string

const (
	CodeWikipediaNotFound     Code = "WIKIPEDIA_NOT_FOUND"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeTimeout               Code = "TIMEOUT"
	CodeAuthFailed            Code = "AUTH_FAILED"
	CodeNetworkError          Code = "NETWORK_ERROR"
	CodeValidationError       Code = "VALIDATION_ERROR"
	CodeLockAcquisitionFailed Code = "LOCK_ACQUISITION_FAILED"
	CodeCityNotFound          Code = "CITY_NOT_FOUND"
	CodeDatabaseError         Code = "DATABASE_ERROR"
	CodeEnrichmentError       Code = "ENRICHMENT_ERROR"
)

// codedError carries an explicit error code through wrapping layers so the
// classifier does not have to guess from the message
type codedError struct {
	code Code
	err  error
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

// WithCode tags err with an explicit error code. Returns nil for a nil err.
func WithCode(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// Classify maps an arbitrary failure to an error code. Explicitly tagged
// errors win; everything else is best-effort substring matching over the
// message, falling through to the catch-all rather than ever failing itself.
func Classify(err error) Code {
	if err == nil {
		return CodeEnrichmentError
	}

	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeTimeout
		}
		return CodeNetworkError
	}

	message := strings.ToLower(err.Error())

	switch {
	case containsAny(message, "404", "not found"):
		return CodeWikipediaNotFound
	case containsAny(message, "429", "rate limit"):
		return CodeRateLimited
	case containsAny(message, "timed out", "timeout", "deadline exceeded"):
		return CodeTimeout
	case containsAny(message, "401", "403", "unauthorized", "forbidden", "invalid key"):
		return CodeAuthFailed
	case containsAny(message, "connection refused", "connection reset", "no such host", "network"):
		return CodeNetworkError
	case containsAny(message, "sql", "database", "pq:"):
		return CodeDatabaseError
	default:
		return CodeEnrichmentError
	}
}

func containsAny(message string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(message, needle) {
			return true
		}
	}
	return false
}
