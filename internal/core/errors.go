package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies failures so the HTTP boundary can map them to status
// codes without inspecting message text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindNotFound
	KindPolicyViolation
	KindNoSources
	KindMaterialNotIngested
	KindUnsupportedType
	KindInvalidURL
	KindProcessingFailed
	KindProcessingTimeout
	KindUpstreamFailure
	KindRateLimited
	KindParseFailure
)

// Error is the typed error carried across service boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a typed error with a human-readable message.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr attaches a cause to a typed error.
func WrapErr(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if untagged.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status code the frontend contract expects.
// Unrecognized errors surface as 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput, KindNoSources, KindMaterialNotIngested,
		KindUnsupportedType, KindInvalidURL:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPolicyViolation:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsRateLimited recognizes quota and rate-limit failures from the upstream
// LLM so certain endpoints can degrade to a canned response instead of
// failing. Vendor SDK errors are free text, so substring matching is the
// only available signal.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if KindOf(err) == KindRateLimited {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "quota", "rate limit", "resource_exhausted", "resource exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
