// Package errors defines structured error types for the courierd notification API.
// Errors carry a stable machine-readable code and an HTTP status so transport
// layers can map them without inspecting messages.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/courierd/courierd/pkg/constants"
)

// AppError is a structured application error with a stable code, an HTTP
// status, and optional metadata for logging. The message is safe to return to
// callers; internal causes travel on the wrapped error only.
type AppError struct {
	code       constants.ErrorCode
	httpStatus int
	message    string
	cause      error
	metadata   map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the stable machine-readable error code.
func (e *AppError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	return e.httpStatus
}

// Message returns the caller-safe message without the wrapped cause.
func (e *AppError) Message() string {
	return e.message
}

// Unwrap returns the underlying cause for error-chain support.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches a cause error to the chain.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithMetadata attaches additional context for logging. Metadata is never
// serialized into client responses.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all attached metadata.
func (e *AppError) Metadata() map[string]interface{} {
	return e.metadata
}

// New creates a new AppError with the given code, status, and message.
func New(code constants.ErrorCode, httpStatus int, message string) *AppError {
	return &AppError{
		code:       code,
		httpStatus: httpStatus,
		message:    message,
	}
}

// Wrap wraps err into an AppError with the given code and message.
func Wrap(err error, code constants.ErrorCode, message string) *AppError {
	return New(code, HTTPStatusFor(code), message).WithCause(err)
}

// ================================================================================
// Predefined Constructors
// ================================================================================

// ErrInvalidRequest creates an INVALID_REQUEST error.
func ErrInvalidRequest(message string) *AppError {
	return New(constants.ErrCodeInvalidRequest, http.StatusBadRequest, message)
}

// ErrNotFound creates a NOT_FOUND error.
func ErrNotFound(message string) *AppError {
	return New(constants.ErrCodeNotFound, http.StatusNotFound, message)
}

// ErrInternal creates an INTERNAL_ERROR error. The message must be safe for
// callers; wrap the real cause instead of embedding it.
func ErrInternal(message string) *AppError {
	return New(constants.ErrCodeInternal, http.StatusInternalServerError, message)
}

// ErrMissingCredential creates a MISSING_CREDENTIAL error.
func ErrMissingCredential() *AppError {
	return New(constants.ErrCodeMissingCredential, http.StatusUnauthorized, "API key is required")
}

// ErrInvalidCredential creates an INVALID_CREDENTIAL error. The same error is
// returned for unknown and deactivated keys so the two are indistinguishable.
func ErrInvalidCredential() *AppError {
	return New(constants.ErrCodeInvalidCredential, http.StatusUnauthorized, "invalid API key")
}

// ErrRateLimitExceeded creates a RATE_LIMIT_EXCEEDED error.
func ErrRateLimitExceeded(limit, current int64) *AppError {
	return New(constants.ErrCodeRateLimitExceeded, http.StatusTooManyRequests, "rate limit exceeded").
		WithMetadata("limit", limit).
		WithMetadata("current", current)
}

// ErrAuthError creates the generic AUTH_ERROR returned whenever validation
// fails for an internal reason. It deliberately carries no detail.
func ErrAuthError() *AppError {
	return New(constants.ErrCodeAuthError, http.StatusInternalServerError, "authentication service error")
}

// ================================================================================
// Inspection Utilities
// ================================================================================

// AsAppError attempts to extract an AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrCodeInternal for plain errors.
func CodeOf(err error) constants.ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code()
	}
	return constants.ErrCodeInternal
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return CodeOf(err) == constants.ErrCodeNotFound
}

// HTTPStatusFor maps codes to their HTTP statuses. Transport layers use it
// to translate denial codes that never became AppErrors.
func HTTPStatusFor(code constants.ErrorCode) int {
	switch code {
	case constants.ErrCodeInvalidRequest, constants.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case constants.ErrCodeMissingCredential, constants.ErrCodeInvalidCredential, constants.ErrCodeCredentialExpired:
		return http.StatusUnauthorized
	case constants.ErrCodeInsufficientScope:
		return http.StatusForbidden
	case constants.ErrCodeNotFound:
		return http.StatusNotFound
	case constants.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse is the JSON structure for error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToErrorResponse converts any error to a caller-safe ErrorResponse. Plain
// errors collapse to a generic internal error so no internal state leaks.
func ToErrorResponse(err error) *ErrorResponse {
	if appErr, ok := AsAppError(err); ok {
		return &ErrorResponse{
			Error:   string(appErr.Code()),
			Message: appErr.Message(),
		}
	}
	return &ErrorResponse{
		Error:   string(constants.ErrCodeInternal),
		Message: "an unexpected error occurred",
	}
}
