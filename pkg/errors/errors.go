// Package errors defines the structured error taxonomy shared by all
// reconciliation stages.
//
// Stage failures never cross package boundaries as bare errors: they are
// wrapped in a ReconcilerError carrying a category, a stable code, an optional
// suggestion for the operator and arbitrary context fields. The taxonomy
// distinguishes per-file failures (a bad statement file is recorded and the
// batch continues) from per-gateway failures (an empty dataset aborts that
// gateway's run).
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the stage or resource that produced them.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryMapping        ErrorCategory = "mapping"
	CategoryClassification ErrorCategory = "classification"
	CategoryMatching       ErrorCategory = "matching"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure within a category.
type ErrorCode string

const (
	// File errors: recorded per file, the batch continues.
	CodeUnsupportedFileType ErrorCode = "unsupported_file_type"
	CodeFileReadError       ErrorCode = "file_read_error"
	CodeFileCorrupted       ErrorCode = "file_corrupted"

	// Mapping errors: non-fatal, defaults are substituted.
	CodeUnmappedColumn ErrorCode = "unmapped_column"

	// Classification errors: non-fatal, record falls through.
	CodeUnparseableReference ErrorCode = "unparseable_reference"

	// Matching errors: fatal for the gateway run.
	CodeEmptyDataset ErrorCode = "empty_dataset"
	CodeDuplicateKey ErrorCode = "duplicate_key"

	// Configuration errors.
	CodeUnknownGateway ErrorCode = "unknown_gateway"
	CodeInvalidConfig  ErrorCode = "invalid_config"

	// Internal errors.
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the error type returned by every stage in the pipeline.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries additional key/value information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// IsFatalForGateway reports whether the error must abort the whole gateway
// run rather than just the file that produced it.
func (e *ReconcilerError) IsFatalForGateway() bool {
	switch e.Category {
	case CategoryMatching, CategoryConfiguration, CategoryInternal:
		return true
	default:
		return false
	}
}

// GetExitCode maps the error category to a process exit code.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryMapping, CategoryClassification:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryMatching, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a context field to the error.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches an operator-facing suggestion to the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with reconciliation context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// UnsupportedFileType reports a file whose extension no reader handles.
func UnsupportedFileType(filename, ext string) *ReconcilerError {
	return New(CategoryFile, CodeUnsupportedFileType,
		fmt.Sprintf("unsupported file type %q for file %s", ext, filename)).
		WithSuggestion("supported types are .csv, .xlsx and .xls").
		WithContext("filename", filename).
		WithContext("extension", ext)
}

// FileReadError reports a file that could not be read or parsed at all.
func FileReadError(filename string, err error) *ReconcilerError {
	return Wrap(err, CategoryFile, CodeFileReadError,
		fmt.Sprintf("failed to read file %s", filename)).
		WithSuggestion("verify the file is a valid export and not truncated").
		WithContext("filename", filename)
}

// EmptyDataset reports a gateway that has uploaded files but produced zero
// usable rows on the named side. This usually means normalization failed
// upstream, so it is surfaced instead of reporting a zero-record success.
func EmptyDataset(gateway, side string) *ReconcilerError {
	return New(CategoryMatching, CodeEmptyDataset,
		fmt.Sprintf("no usable %s records for gateway %s", side, gateway)).
		WithSuggestion("check header-row and end-of-data configuration for the gateway").
		WithContext("gateway", gateway).
		WithContext("side", side)
}

// UnknownGateway reports a gateway name with no registered configuration.
func UnknownGateway(name string) *ReconcilerError {
	return New(CategoryConfiguration, CodeUnknownGateway,
		fmt.Sprintf("no configuration registered for gateway %q", name)).
		WithSuggestion("run the gateways subcommand to list registered gateways").
		WithContext("gateway", name)
}

// ConfigurationError reports an invalid configuration value.
func ConfigurationError(setting string, value interface{}, err error) *ReconcilerError {
	result := Wrap(err, CategoryConfiguration, CodeInvalidConfig,
		fmt.Sprintf("invalid configuration for %q: %v", setting, value))
	if result == nil {
		result = New(CategoryConfiguration, CodeInvalidConfig,
			fmt.Sprintf("invalid configuration for %q: %v", setting, value))
	}
	return result.
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError reports an unexpected failure inside the engine.
func InternalError(operation string, err error) *ReconcilerError {
	return Wrap(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation)).
		WithContext("operation", operation)
}

// IsReconcilerError checks if an error is a ReconcilerError.
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	if re, ok := AsReconcilerError(err); ok {
		return re.Code == code
	}
	return false
}

// ErrorList accumulates per-file errors so one bad file in a multi-file batch
// does not abort the batch.
type ErrorList struct {
	Errors []*ReconcilerError `json:"errors"`
}

// Add appends an error to the list, ignoring nil.
func (el *ErrorList) Add(err *ReconcilerError) {
	if err != nil {
		el.Errors = append(el.Errors, err)
	}
}

// HasErrors reports whether any error was recorded.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Error returns a formatted summary of the accumulated errors.
func (el *ErrorList) Error() string {
	switch len(el.Errors) {
	case 0:
		return "no errors"
	case 1:
		return el.Errors[0].Error()
	}
	byCategory := make(map[ErrorCategory]int)
	for _, err := range el.Errors {
		byCategory[err.Category]++
	}
	var parts []string
	for category, count := range byCategory {
		parts = append(parts, fmt.Sprintf("%s: %d", category, count))
	}
	return fmt.Sprintf("%d errors occurred (%s)", len(el.Errors), strings.Join(parts, ", "))
}

// GetExitCode returns the highest priority exit code across all errors.
func (el *ErrorList) GetExitCode() int {
	if len(el.Errors) == 0 {
		return 0
	}
	maxCode := 1
	for _, err := range el.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}
