package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCorpusEmpty indicates the resolved corpus contains zero usable
	// documents. Fatal to ingestion, never retried.
	ErrCorpusEmpty = errors.New("corpus contains no usable documents")

	// ErrIndexNotFound indicates no index has ever been persisted at the
	// configured location, i.e. ingestion has not been run.
	ErrIndexNotFound = errors.New("vector index not found")

	// ErrInvalidRequest indicates malformed serving input, a client error.
	ErrInvalidRequest = errors.New("invalid request")
)

// ProviderError wraps a failure from an external model provider. Transient
// failures (rate limits, timeouts, 5xx) are retried by the client up to its
// attempt ceiling; the error carries Transient=true when retries were
// exhausted on a retryable condition.
type ProviderError struct {
	Provider  string
	Op        string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a ProviderError classified as transient.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// ParseError reports a malformed bulk record line. Logged and skipped during
// loading; never aborts a run.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
