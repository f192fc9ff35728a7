// Package apierror provides the error taxonomy shared by services and handlers
// and the JSON envelope returned to clients. Internal details (driver errors,
// wrapped causes) only reach the client in development mode.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for clients. It is stable across releases.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindBusinessRule    Kind = "BUSINESS_RULE_VIOLATION"
	KindDependency      Kind = "DEPENDENCY_FAILURE"
	KindInternal        Kind = "INTERNAL"
)

// Stable codes for rule violations the UI reacts to.
const (
	CodeInvalidAmount            = "INVALID_AMOUNT"
	CodeMultiplePaymentsDisabled = "MULTIPLE_PAYMENTS_DISABLED"
	CodeMaxPaymentsReached       = "MAX_PAYMENTS_REACHED"
	CodeAmountExceedsRequirement = "AMOUNT_EXCEEDS_REQUIREMENT"
	CodePurchaseOrderNotApproved = "PURCHASE_ORDER_NOT_APPROVED"
	CodeInvalidTransition        = "INVALID_TRANSITION"
)

// Error is the typed error returned by the service layer.
type Error struct {
	Kind    Kind
	Code    string
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

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func InvalidInput(msg string) *Error    { return &Error{Kind: KindInvalidInput, Message: msg} }

// InvalidInputCode is InvalidInput carrying a stable code.
func InvalidInputCode(code, msg string) *Error {
	return &Error{Kind: KindInvalidInput, Code: code, Message: msg}
}

// BusinessRule reports a violated invariant (payment caps, transitions...).
func BusinessRule(code, msg string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: msg}
}

// Dependency wraps a failure of an external collaborator (PDF, storage, mail).
func Dependency(msg string, err error) *Error {
	return &Error{Kind: KindDependency, Message: msg, Err: err}
}

// Internal wraps an unexpected failure (database, bug).
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of err, KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps a Kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindBusinessRule:
		return http.StatusConflict
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Kind   Kind   `json:"kind,omitempty"`
	Code   string `json:"code,omitempty"`
	Debug  string `json:"debug,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError builds the envelope for err. debug adds the wrapped cause.
func FromError(err error, debug bool) *APIError {
	var e *Error
	if !errors.As(err, &e) {
		out := &APIError{Detail: "Error interno del servidor", Kind: KindInternal}
		if debug {
			out.Debug = err.Error()
		}
		return out
	}
	out := &APIError{Detail: e.Message, Kind: e.Kind, Code: e.Code}
	if e.Kind == KindInternal {
		out.Detail = "Error interno del servidor"
	}
	if debug && e.Err != nil {
		out.Debug = e.Err.Error()
	}
	return out
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Kind: KindInvalidInput, Fields: fields}
}
