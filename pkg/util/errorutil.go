package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeStorage           = "STORAGE_UNAVAILABLE"
	CodeSuggestionFailure = "SUGGESTION_FAILED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError reports input the caller must correct.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewNotFound reports a missing ticket, policy or suggestion.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewStorageError wraps a failure of the underlying store.
func NewStorageError(op string, err error) error {
	return &DomainError{
		Code:       CodeStorage,
		Message:    fmt.Sprintf("storage failure during %s", op),
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewSuggestionError wraps a failure of the text-generation collaborator.
func NewSuggestionError(message string, err error) error {
	return &DomainError{
		Code:       CodeSuggestionFailure,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
