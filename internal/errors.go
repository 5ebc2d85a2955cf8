package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "AUTH_ERROR"
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeRemote     ErrorType = "REMOTE_ERROR"
	ErrorTypeNetwork    ErrorType = "NETWORK_ERROR"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInvalidDate         ErrorCode = "INVALID_DATE"
	ErrCodeEmptyCart           ErrorCode = "EMPTY_CART"
	ErrCodeInvalidQuantity     ErrorCode = "INVALID_QUANTITY"

	ErrCodeInvalidCredentials     ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeMalformedLoginResponse ErrorCode = "MALFORMED_LOGIN_RESPONSE"
	ErrCodeNoSession              ErrorCode = "NO_SESSION"

	ErrCodeRemoteRejected    ErrorCode = "REMOTE_REJECTED"
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrCodeUnreachable       ErrorCode = "UNREACHABLE"
	ErrCodeTimeout           ErrorCode = "REQUEST_TIMEOUT"

	ErrCodeSubmissionInProgress ErrorCode = "SUBMISSION_IN_PROGRESS"

	ErrCodeStorage ErrorCode = "STORAGE_FAILURE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports a match when type and code agree, so the package sentinels
// can be used with errors.Is regardless of message or status.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewAuthError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeAuth,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewRemoteError wraps a non-2xx answer from the portal API. StatusCode
// carries the HTTP status the server replied with.
func NewRemoteError(message string, status int) *AppError {
	return &AppError{
		Type:       ErrorTypeRemote,
		Code:       ErrCodeRemoteRejected,
		Message:    message,
		StatusCode: status,
	}
}

func NewNetworkError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrInvalidCredentials     = NewAuthError("login failed", ErrCodeInvalidCredentials)
	ErrMalformedLoginResponse = NewAuthError("token not found in login response", ErrCodeMalformedLoginResponse)
	ErrNoSession              = NewAuthError("not logged in", ErrCodeNoSession)

	ErrInvalidAmount       = NewValidationError("invalid amount", ErrCodeInvalidAmount)
	ErrInsufficientBalance = NewValidationError("insufficient balance", ErrCodeInsufficientBalance)
	ErrEmptyCart           = NewValidationError("cart is empty", ErrCodeEmptyCart)

	ErrSubmissionInProgress = NewConflictError("a submission is already in progress", ErrCodeSubmissionInProgress)

	ErrRequestTimeout = NewNetworkError("request timed out", ErrCodeTimeout, nil)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
