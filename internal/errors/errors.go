package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gomca/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of the
// innermost AppError or deriving one from a domain error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError in the chain, the code of
// a wrapped domain error, or CodeInternalError
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	for sentinel, code := range domainCodes {
		if stderrors.Is(err, sentinel) {
			return code
		}
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"

	CodeEmptyTable            = "EMPTY_TABLE"
	CodeDegenerateField       = "DEGENERATE_FIELD"
	CodeUnknownLevel          = "UNKNOWN_LEVEL"
	CodeInvalidComponentCount = "INVALID_COMPONENT_COUNT"
	CodeSingularInput         = "SINGULAR_INPUT"
	CodeCapacityExceeded      = "CAPACITY_EXCEEDED"
)

var domainCodes = map[error]string{
	core.ErrEmptyTable:            CodeEmptyTable,
	core.ErrDegenerateField:       CodeDegenerateField,
	core.ErrUnknownLevel:          CodeUnknownLevel,
	core.ErrInvalidTable:          CodeInvalidInput,
	core.ErrInvalidComponentCount: CodeInvalidComponentCount,
	core.ErrSingularInput:         CodeSingularInput,
	core.ErrCapacityExceeded:      CodeCapacityExceeded,
}

// HTTPStatus maps an error to the status an API should answer with
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeCapacityExceeded:
		return http.StatusRequestEntityTooLarge
	case CodeInvalidInput, CodeValidationError, CodeEmptyTable, CodeDegenerateField,
		CodeUnknownLevel, CodeInvalidComponentCount, CodeSingularInput:
		return http.StatusUnprocessableEntity
	case CodeDatabaseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
