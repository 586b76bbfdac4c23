package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required
	EFORBIDDEN    = "forbidden"    // Permission denied
	EGATED        = "gated"        // Blocked by an unresolved pending task
	ELOCKED       = "locked"       // Replacement attempts exhausted
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate)
	EINTERNAL     = "internal"     // Internal server error
)

// Error represents an application error with structured information.
type Error struct {
	Code    string    // Machine-readable error code
	Op      string    // Operation that failed (e.g., "report.create")
	Message string    // Human-readable message
	Err     error     // Underlying error
	Rule    string    // Domain rule identifier, when one applies (e.g., "R-PD-013")
	TaskID  uuid.UUID // Blocking pending task, set on EGATED errors
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// ErrorRule returns the rule identifier carried by the error, if any.
func ErrorRule(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}

// ErrorTaskID returns the blocking task reference of a gated error, if any.
func ErrorTaskID(err error) uuid.UUID {
	var e *Error
	if errors.As(err, &e) {
		return e.TaskID
	}
	return uuid.Nil
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// InvalidRule creates a validation error tagged with a domain rule identifier.
func InvalidRule(op, rule, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Rule:    rule,
		Message: message,
	}
}

// Forbidden creates a permission error.
func Forbidden(op, message string) *Error {
	return &Error{
		Code:    EFORBIDDEN,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error tagged with a domain rule identifier.
func Conflict(op, rule, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Rule:    rule,
		Message: message,
	}
}

// Gated creates a blocked-by-pending-task error referencing the blocking task.
func Gated(op string, taskID uuid.UUID) *Error {
	return &Error{
		Code:    EGATED,
		Op:      op,
		Rule:    RuleEvidenceGate,
		TaskID:  taskID,
		Message: "unresolved pending tasks exist for this driver",
	}
}

// Locked creates a replacement-attempts-exhausted error.
func Locked(op string) *Error {
	return &Error{
		Code:    ELOCKED,
		Op:      op,
		Rule:    RuleEvidenceLocked,
		Message: "replacement attempts exhausted; evidence is locked",
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// RuleViolation is a single structured validation failure.
type RuleViolation struct {
	Rule    string `json:"rule"`            // Domain rule identifier (e.g., "R-PD-013")
	Field   string `json:"field,omitempty"` // Offending field, when one applies
	Message string `json:"message"`         // Human-readable explanation
}

// ValidationError carries the full list of rule violations found in one pass.
// Every broken rule is reported at once rather than failing on the first, so
// callers can fix a submission in a single round trip.
type ValidationError struct {
	Op         string
	Violations []RuleViolation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(msgs, "; "))
}

// Add appends a violation and returns the receiver for chaining.
func (e *ValidationError) Add(rule, field, message string) *ValidationError {
	e.Violations = append(e.Violations, RuleViolation{Rule: rule, Field: field, Message: message})
	return e
}

// OrNil returns nil when no violations were collected.
func (e *ValidationError) OrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
