package searchapi

import (
	"fmt"

	"github.com/annuaire-entreprises/annuaire-engine/pkg/metrics"
)

// ErrorKind classifies a failed registry call.
type ErrorKind int

const (
	KindTransport ErrorKind = iota // request never got a response
	KindStatus                     // non-2xx response
	KindDecode                     // 2xx response with an unreadable body
)

// Error is returned by every Source implementation in this package.
// Transport and status failures are retryable; decode failures are not.
// A client timeout is a transport failure, but a call abandoned because the
// caller's context ended is marked Canceled and never retried.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
	Canceled   bool
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("search API returned status %d: %s", e.StatusCode, e.Body)
	case KindDecode:
		return fmt.Sprintf("failed to parse search API response: %v", e.Err)
	default:
		return fmt.Sprintf("failed to call search API: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Kind != KindDecode && !e.Canceled
}

func (e *Error) outcome() string {
	switch e.Kind {
	case KindStatus:
		return metrics.OutcomeStatus
	case KindDecode:
		return metrics.OutcomeDecode
	default:
		return metrics.OutcomeTransport
	}
}
