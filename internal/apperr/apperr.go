// Package apperr defines the error taxonomy shared by every pipeline stage.
//
// Errors are split into two propagation classes: local errors (Degradation,
// DecisionFallback, CacheFault, IngestionFault) are handled at the component
// boundary and never terminate the request; surfaced errors (Validation,
// Admission, Timeout, Fatal) terminate the pipeline and populate the
// outward-facing error envelope.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which branch of the error taxonomy an error belongs to.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindAdmission       Kind = "admission_error"
	KindTimeout         Kind = "timeout"
	KindDegradation     Kind = "degradation"
	KindDecisionFallback Kind = "decision_fallback"
	KindCacheFault      Kind = "cache_fault"
	KindIngestionFault  Kind = "ingestion_fault"
	KindFatal           Kind = "internal_error"
)

// Error is the common shape for every surfaced error in the system. It
// carries the taxonomy Kind, a human message, and optional structured
// details used to populate the error envelope's `details` field.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter float64 // seconds; only meaningful for KindAdmission
	Stage      string  // only meaningful for KindTimeout / KindFatal
	Details    map[string]any
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code returns the wire error_code used in the error envelope.
func (e *Error) Code() string {
	return string(e.Kind)
}

func newErr(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Validation builds a KindValidation error. Never retried.
func Validation(message string) *Error {
	return newErr(KindValidation, message, nil)
}

// Admission builds a KindAdmission error (queue overflow or rate-limit
// denial). retryAfter is seconds the caller should wait before retrying.
func Admission(message string, retryAfter float64, details map[string]any) *Error {
	e := newErr(KindAdmission, message, nil)
	e.RetryAfter = retryAfter
	e.Details = details
	return e
}

// QueueOverflow is the specific Admission error raised when the priority
// queue is at capacity.
func QueueOverflow() *Error {
	e := Admission("queue is at capacity", 0, nil)
	e.Kind = KindAdmission
	e.Details = map[string]any{"error_code": "queue_overflow"}
	return e
}

// RateLimitExceeded is the specific Admission error raised when a token
// bucket is exhausted.
func RateLimitExceeded(bucket string, retryAfter float64) *Error {
	return Admission("rate limit exceeded", retryAfter, map[string]any{
		"error_code": "rate_limit_exceeded",
		"bucket":     bucket,
	})
}

// Timeout builds a KindTimeout error naming the stage that breached its
// deadline.
func Timeout(stage string, cause error) *Error {
	e := newErr(KindTimeout, fmt.Sprintf("stage %q exceeded its deadline", stage), cause)
	e.Stage = stage
	return e
}

// Fatal wraps an unexpected error raised outside every named failure path.
func Fatal(stage string, elapsedStage string, cause error) *Error {
	e := newErr(KindFatal, "unhandled orchestration failure", cause)
	e.Stage = stage
	return e
}

// CacheFault builds a KindCacheFault error. Callers treat this identically
// to a cache miss; it never propagates to the caller.
func CacheFault(message string, cause error) *Error {
	return newErr(KindCacheFault, message, cause)
}

// DecisionFallback builds a KindDecisionFallback error. Callers log it and
// substitute the decision's deterministic fallback; it is never surfaced.
func DecisionFallback(decision string, cause error) *Error {
	return newErr(KindDecisionFallback, fmt.Sprintf("decision %q fell back", decision), cause)
}

// IngestionFault builds a KindIngestionFault error. Embedded into the
// response's ingestion_status field; never fails the read path.
func IngestionFault(message string, cause error) *Error {
	return newErr(KindIngestionFault, message, cause)
}

// Degradation builds a KindDegradation error recorded in a response's
// per-workspace or per-provider error map.
func Degradation(source string, cause error) *Error {
	return newErr(KindDegradation, fmt.Sprintf("%s degraded", source), cause)
}

// As is a thin re-export of errors.As so callers don't need a second import
// just to type-switch on *Error.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is reports whether err (or any error it wraps) is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
