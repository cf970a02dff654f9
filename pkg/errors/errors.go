package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure independent of transport.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeCouponInvalid Code = "COUPON_INVALID"
)

// Metadata is how a Code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	noDetails   = false
	withDetails = true
)

func codeMeta(status int, public string, details bool) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      status >= http.StatusInternalServerError,
		PublicMessage:  public,
		DetailsAllowed: details,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    codeMeta(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized:  codeMeta(http.StatusUnauthorized, "authentication required", noDetails),
	CodeForbidden:     codeMeta(http.StatusForbidden, "access denied", noDetails),
	CodeNotFound:      codeMeta(http.StatusNotFound, "resource not found", noDetails),
	CodeConflict:      codeMeta(http.StatusConflict, "conflict detected", noDetails),
	CodeStateConflict: codeMeta(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeIdempotency:   codeMeta(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimit:     codeMeta(http.StatusTooManyRequests, "rate limit exceeded", noDetails),
	CodeInternal:      codeMeta(http.StatusInternalServerError, "internal server error", noDetails),
	CodeDependency:    codeMeta(http.StatusServiceUnavailable, "dependency unavailable", withDetails),
	CodeCouponInvalid: codeMeta(http.StatusBadRequest, "coupon cannot be applied", withDetails),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

// IsRetryable reports whether a caller may repeat the request unchanged.
// Untyped errors are treated as internal and so retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := As(err); typed != nil {
		return MetadataFor(typed.code).Retryable
	}
	return true
}

// Error is the typed error returned across service boundaries. Controllers
// map it to a status and envelope through MetadataFor.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
