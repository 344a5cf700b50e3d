package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

var statusOf = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	ErrCodeUnsupportedQuery ErrorCode = "UNSUPPORTED_LOOKUP"

	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	ErrCodeMissingToken ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired ErrorCode = "TOKEN_EXPIRED"

	ErrCodeHierarchyUnavailable ErrorCode = "HIERARCHY_UNAVAILABLE"
)

// AppError is the error envelope written to clients. StatusCode and Cause stay
// server side.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

type Response struct {
	Error *AppError `json:"error"`
}

var (
	ErrRecordNotFound = newAppError(ErrorTypeNotFound, ErrCodeRecordNotFound, "Record not found")

	ErrMissingToken = newAppError(ErrorTypeUnauthorized, ErrCodeMissingToken, "Missing authorization token")
	ErrInvalidToken = newAppError(ErrorTypeUnauthorized, ErrCodeInvalidToken, "Invalid token")
	ErrTokenExpired = newAppError(ErrorTypeUnauthorized, ErrCodeTokenExpired, "Token has expired")
)

func newAppError(t ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: statusOf[t]}
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, message)
}

// NewValidationFieldError reports one invalid field. The field's own code goes into
// the details; the envelope code is always VALIDATION_FAILED.
func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return NewValidationError("Validation failed", ErrCodeValidationFailed).
		WithDetails(ValidationErrors{Errors: []ValidationError{{Field: field, Message: message, Code: string(code)}}})
}

func NewInternalError(message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, ErrorCode(ErrorTypeInternal), message).WithCause(cause)
}

func (e *AppError) Error() string {
	if fields := e.fieldMessages(); len(fields) > 0 {
		return fields[0]
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Summary is the message with every field error spelled out, for logs.
func (e *AppError) Summary() string {
	if fields := e.fieldMessages(); len(fields) > 0 {
		return strings.Join(fields, "; ")
	}
	return e.Message
}

func (e *AppError) fieldMessages() []string {
	details, ok := e.Details.(ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]string, len(details.Errors))
	for i, fe := range details.Errors {
		out[i] = fe.Message
	}
	return out
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCode(code ErrorCode) *AppError {
	e.Code = code
	return e
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
