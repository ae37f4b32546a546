package venue

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies adapter failures so the scheduler can pick the right
// backoff policy and the health endpoint can report a cause.
type ErrorKind string

const (
	ErrNetwork           ErrorKind = "network"
	ErrTimeout           ErrorKind = "timeout"
	ErrRateLimited       ErrorKind = "rate_limited"
	ErrAuth              ErrorKind = "auth"
	ErrMalformed         ErrorKind = "malformed_response"
	ErrUnsupportedSymbol ErrorKind = "unsupported_symbol"
)

// Error is a classified adapter failure.
type Error struct {
	Kind  ErrorKind
	Venue string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s: %v", e.Venue, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Venue, e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified adapter error.
func NewError(kind ErrorKind, venue, op string, err error) *Error {
	return &Error{Kind: kind, Venue: venue, Op: op, Err: err}
}

// KindOf returns the classification of err, or ErrMalformed when err is not
// a venue error (an unclassified failure is treated as a response problem).
func KindOf(err error) ErrorKind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	}
	return ErrMalformed
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
