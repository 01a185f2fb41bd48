package rag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLimitExceeded is the base of every LimitError.
	ErrLimitExceeded = errors.New("document exceeds ingestion limits")

	// ErrNoContext indicates retrieval matched no chunks for the session.
	ErrNoContext = errors.New("no relevant context found")

	// ErrEmptyQuestion indicates a blank or whitespace-only question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrEmptyDocument indicates an ingestion call with no content.
	ErrEmptyDocument = errors.New("document is empty")
)

// LimitError reports which ingestion limit a document broke, before any
// embedding call is made.
type LimitError struct {
	Limit  string // "pages", "words" or "characters"
	Max    int
	Actual int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d > %d", e.Limit, e.Actual, e.Max)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// ServiceError wraps a failure from a hosted model service (embedding
// or generation) and records whether it was a rate-limit rejection, so
// the transport layer can answer 429 instead of 500.
type ServiceError struct {
	Op          string // "embedding", "generation" or "rewrite"
	RateLimited bool
	Err         error
}

func (e *ServiceError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s service rate limited: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s service failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// rateLimitPatterns matches rate-limit rejections in provider error
// strings. The model SDKs expose no typed error for this, so string
// matching is the only portable signal.
var rateLimitPatterns = []string{"429", "rate limit", "quota exceeded", "resource exhausted"}

func newServiceError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, RateLimited: rateLimited(err), Err: err}
}

func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RateLimited reports whether err originated from a rate-limited model
// service call anywhere in its chain.
func RateLimited(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.RateLimited
}
