// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details. It also
// maps error codes to process exit codes for the command line entry points.
package apperror

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Input
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeMissingHeader     ErrorCode = "MISSING_HEADER"
	CodeDuplicateHeader   ErrorCode = "DUPLICATE_HEADER"
	CodeUnknownCategory   ErrorCode = "UNKNOWN_CATEGORY"
	CodeDuplicateCategory ErrorCode = "DUPLICATE_CATEGORY"
	CodeInvalidCapacity   ErrorCode = "INVALID_CAPACITY"
	CodeInvalidPerson     ErrorCode = "INVALID_PERSON"
	CodeInputNotFound     ErrorCode = "INPUT_NOT_FOUND"

	// Cost policy
	CodeInvalidPolicy ErrorCode = "INVALID_POLICY"
	CodeCostOverflow  ErrorCode = "COST_OVERFLOW"

	// Solver internals. None of these can be caused by valid input data.
	CodeOutOfRangeNodeAccess        ErrorCode = "OUT_OF_RANGE_NODE_ACCESS"
	CodeStructuralEncodingViolation ErrorCode = "STRUCTURAL_ENCODING_VIOLATION"
	CodeNegativeCycle               ErrorCode = "NEGATIVE_CYCLE"
	CodeConservationViolation       ErrorCode = "CONSERVATION_VIOLATION"
	CodeInvalidSnapshot             ErrorCode = "INVALID_SNAPSHOT"

	// Storage
	CodeCacheFailure    ErrorCode = "CACHE_FAILURE"
	CodeDatabaseFailure ErrorCode = "DATABASE_FAILURE"
	CodeExportFailure   ErrorCode = "EXPORT_FAILURE"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
	CodeUnimplemented   ErrorCode = "UNIMPLEMENTED"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that can be ignored or automatically resolved.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error that might require immediate human intervention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which input field caused the error, if applicable.
	Details  map[string]any // Details provides additional structured information about the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Exit codes returned by the command line tools.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInput    = 2
	ExitPolicy   = 3
	ExitInternal = 70
	ExitStorage  = 74
)

// ExitCode maps an ErrorCode to a process exit status.
func (e *Error) ExitCode() int {
	switch e.Code {
	case CodeInvalidInput, CodeMissingHeader, CodeDuplicateHeader, CodeUnknownCategory,
		CodeDuplicateCategory, CodeInvalidCapacity, CodeInvalidPerson, CodeInputNotFound,
		CodeInvalidArgument, CodeNilInput, CodeInvalidSnapshot:
		return ExitInput

	case CodeInvalidPolicy, CodeCostOverflow:
		return ExitPolicy

	case CodeOutOfRangeNodeAccess, CodeStructuralEncodingViolation,
		CodeNegativeCycle, CodeConservationViolation:
		return ExitInternal

	case CodeCacheFailure, CodeDatabaseFailure, CodeExportFailure:
		return ExitStorage

	default:
		return ExitFailure
	}
}

// ExitCode converts any error into a process exit status.
// A nil error maps to ExitOK, an error outside the taxonomy to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return ExitFailure
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// NewWithField creates a new application error with the given code, message, and field.
// The default severity is SeverityError.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
// The default severity is SeverityError.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsWarning checks if the given error is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// IsInternal reports whether err belongs to the solver-internal taxonomy:
// failures that indicate a bug rather than bad data.
func IsInternal(err error) bool {
	switch Code(err) {
	case CodeOutOfRangeNodeAccess, CodeStructuralEncodingViolation,
		CodeNegativeCycle, CodeConservationViolation:
		return true
	default:
		return false
	}
}

// Predefined errors for common scenarios.
var (
	ErrNilNetwork    = New(CodeNilInput, "network is nil")
	ErrNilModel      = New(CodeNilInput, "cost model is nil")
	ErrNegativeCycle = New(CodeNegativeCycle, "residual graph contains a negative cycle")
	ErrNotFound      = New(CodeNotFound, "record not found")
)

// ValidationErrors is a collection of application errors and warnings,
// typically used for aggregating results of multiple validation checks.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings returns true if the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid returns true if the collection contains no errors (warnings do not affect validity).
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge combines the current ValidationErrors collection with another one.
// All errors and warnings from the 'other' collection are appended to the current one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// Err folds the collected errors into a single *Error with code
// CodeInvalidInput, or returns nil when the collection is valid.
// The individual messages are kept under the "errors" detail.
func (v *ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	if len(v.Errors) == 1 {
		return v.Errors[0]
	}
	return New(CodeInvalidInput, fmt.Sprintf("%d input problems, first: %s", len(v.Errors), v.Errors[0].Message)).
		WithDetails("errors", v.ErrorMessages())
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}
