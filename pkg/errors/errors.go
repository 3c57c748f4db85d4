package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/campusvoice/contenttrust/pkg/logger"
)

// Kind classifies an error into the pipeline's taxonomy. Handlers map kinds
// to transport status codes; services decide retry behaviour from them.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks malformed input (missing reason, unknown action).
	KindValidation
	// KindConflict marks duplicate or irreversible-state violations.
	KindConflict
	// KindNotFound marks references to unknown ids.
	KindNotFound
	// KindAuthorization marks an actor lacking the required role or ownership.
	KindAuthorization
	// KindTransient marks retryable storage or timeout faults.
	KindTransient
	// KindIntegrity marks counter drift detected by reconciliation. Never
	// surfaced to interactive callers; corrected and audited instead.
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuthorization:
		return "authorization"
	case KindTransient:
		return "transient"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Error carries a kind, a message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation returns a new validation error.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Msg: msg} }

// Conflict returns a new conflict error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Msg: msg} }

// NotFound returns a new not-found error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Msg: msg} }

// Authorization returns a new authorization error.
func Authorization(msg string) *Error { return &Error{Kind: KindAuthorization, Msg: msg} }

// Transient wraps a retryable fault.
func Transient(msg string, err error) *Error { return &Error{Kind: KindTransient, Msg: msg, Err: err} }

// Integrity wraps a counter-drift fault.
func Integrity(msg string, err error) *Error { return &Error{Kind: KindIntegrity, Msg: msg, Err: err} }

// Wrap wraps an error with additional context, preserving its kind.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindOf(err), Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// HTTPStatus maps an error kind to a transport status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthorization:
		return http.StatusForbidden
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// LogWithError logs the error with context and returns a wrapped error. Use
// this for standardized error logging across services. The component and
// request id the HTTP edge tagged onto the context come along for free.
func LogWithError(ctx context.Context, log *zap.Logger, msg string, err error, fields ...zap.Field) error {
	if log != nil {
		if ctx != nil {
			log = logger.FromContext(ctx, log)
			if reqID := logger.RequestID(ctx); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
		}
		log.Error(msg, append(fields, zap.Error(err))...)
	}
	return Wrap(err, msg)
}
