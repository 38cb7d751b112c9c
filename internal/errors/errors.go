package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of authentication error.
type ErrorCode string

const (
	// ErrCodeValidation indicates input rejected before any network call.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInvalidCredentials indicates the API rejected the username/password.
	ErrCodeInvalidCredentials ErrorCode = "invalid_credentials"
	// ErrCodeServerUnavailable indicates a 5xx, network failure, timeout or open circuit.
	ErrCodeServerUnavailable ErrorCode = "server_unavailable"
	// ErrCodeNotAuthenticated indicates there is no usable session.
	ErrCodeNotAuthenticated ErrorCode = "not_authenticated"
	// ErrCodeSessionExpired indicates the held session is past its expiry.
	ErrCodeSessionExpired ErrorCode = "session_expired"
	// ErrCodeRefreshFailed indicates the API rejected a refresh attempt.
	ErrCodeRefreshFailed ErrorCode = "refresh_failed"
)

// User-facing messages. Shown verbatim in the UI.
const (
	MsgCredentialsRequired = "Username and password are required."
	MsgUsernameRequired    = "Username is required."
	MsgPasswordRequired    = "Password is required."
	MsgInvalidCredentials  = "Invalid username or password."
	MsgCannotConnect       = "Cannot connect to server. Please try again later."
	MsgServerError         = "Server error. Please try again later."
	MsgNotAuthenticated    = "You are not signed in."
	MsgSessionExpired      = "Your session has expired."
	MsgSignInAgain         = "Your session has ended. Please sign in again."
	MsgLoginFailed         = "Login failed."
)

// AppError represents a structured error with a code, a user-facing message and an optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is safe to show to the user; it never contains transport details
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the form field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// InvalidCredentials creates a new InvalidCredentials error.
func InvalidCredentials(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidCredentials,
		Message: MsgInvalidCredentials,
		Cause:   cause,
	}
}

// ServerUnavailable creates a new ServerUnavailable error with the given user message.
func ServerUnavailable(message string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeServerUnavailable,
		Message: message,
		Cause:   cause,
	}
}

// NotAuthenticated creates a new NotAuthenticated error.
func NotAuthenticated(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNotAuthenticated,
		Message: MsgNotAuthenticated,
		Cause:   cause,
	}
}

// SessionExpired creates a new SessionExpired error.
func SessionExpired() *AppError {
	return &AppError{
		Code:    ErrCodeSessionExpired,
		Message: MsgSessionExpired,
	}
}

// RefreshFailed creates a new RefreshFailed error.
func RefreshFailed(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeRefreshFailed,
		Message: MsgSignInAgain,
		Cause:   cause,
	}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsInvalidCredentials checks if an error is an InvalidCredentials error.
func IsInvalidCredentials(err error) bool {
	return isCode(err, ErrCodeInvalidCredentials)
}

// IsServerUnavailable checks if an error is a ServerUnavailable error.
func IsServerUnavailable(err error) bool {
	return isCode(err, ErrCodeServerUnavailable)
}

// IsNotAuthenticated checks if an error is a NotAuthenticated or SessionExpired error.
// Both mean the caller has no usable session.
func IsNotAuthenticated(err error) bool {
	return isCode(err, ErrCodeNotAuthenticated) || isCode(err, ErrCodeSessionExpired)
}

// IsSessionExpired checks if an error is a SessionExpired error.
func IsSessionExpired(err error) bool {
	return isCode(err, ErrCodeSessionExpired)
}

// IsRefreshFailed checks if an error is a RefreshFailed error.
func IsRefreshFailed(err error) bool {
	return isCode(err, ErrCodeRefreshFailed)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// UserMessage returns the message to show for err. Errors that are not AppErrors
// never reach the UI verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return MsgLoginFailed
}
