package platform

import (
	"errors"
	"fmt"
)

// Kind classifies a platform client failure.
type Kind int

const (
	// KindTransport covers network failures with no usable response.
	KindTransport Kind = iota
	// KindUnauthorized covers credential rejections and expired tokens.
	KindUnauthorized
	// KindUpstream covers any other non-2xx or GraphQL-level rejection.
	KindUpstream
	// KindBadResponse covers responses whose shape deviates from the schema.
	KindBadResponse
)

// String returns the kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindUpstream:
		return "upstream"
	case KindBadResponse:
		return "bad-response"
	default:
		return "unknown"
	}
}

// Error is a classified platform client failure. Status is the HTTP status
// when one was received, zero otherwise.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform: %s: %s", e.Kind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("platform: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("platform: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, cause: cause}
}

// KindOf extracts the failure kind, defaulting to KindTransport for
// unclassified errors so callers always have a branch to take.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

// IsUnauthorized reports whether the error is a credential or token rejection.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}
