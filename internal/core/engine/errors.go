package engine

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a simplify failure. Every kind is terminal for the request.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindMissingCredential
	KindRateLimited
	KindUpstreamFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindMissingCredential:
		return "missing_credential"
	case KindRateLimited:
		return "rate_limited"
	case KindUpstreamFailure:
		return "upstream_failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a Kind.
var (
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
	ErrMissingCredential = &Error{Kind: KindMissingCredential}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure}
)

// Error is returned by Simplifier for every expected failure.
type Error struct {
	Kind    Kind
	Message string
	// Fields lists missing request fields for KindInvalidRequest.
	Fields []string
	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "simplify error"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok || other == nil || e == nil {
		return false
	}
	return other.Kind == e.Kind
}

// KindOf returns the Kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return 0
}
