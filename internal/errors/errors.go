package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindForbidden:
		return "FORBIDDEN"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}

// Error is the user-visible failure every service method reports.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func NewValidationError(msg string) error {
	return newError(KindValidation, msg)
}

func NewNotFoundError(msg string) error {
	return newError(KindNotFound, msg)
}

func NewConflictError(msg string) error {
	return newError(KindConflict, msg)
}

func NewForbiddenError(msg string) error {
	return newError(KindForbidden, msg)
}

func NewUnauthorizedError(msg string) error {
	return newError(KindUnauthorized, msg)
}

func NewIndexedValidationError(index int, msg string) error {
	return NewValidationError(fmt.Sprintf("Validation error at transaction %d: %s", index, msg))
}

// KindOf returns KindInternal for anything that is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if IsValidationErrors(err) {
		return KindValidation
	}
	return KindInternal
}

func IsValidationError(err error) bool   { return KindOf(err) == KindValidation }
func IsNotFoundError(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflictError(err error) bool     { return KindOf(err) == KindConflict }
func IsForbiddenError(err error) bool    { return KindOf(err) == KindForbidden }
func IsUnauthorizedError(err error) bool { return KindOf(err) == KindUnauthorized }

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type ValidationErrors struct {
	Errors []error
}

func (ve *ValidationErrors) Error() string {
	errorMessages := ve.Messages()
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(errorMessages, "; "))
}

func (ve *ValidationErrors) Add(err error) {
	ve.Errors = append(ve.Errors, err)
}

func (ve *ValidationErrors) Messages() []string {
	errorMessages := make([]string, len(ve.Errors))
	for i, err := range ve.Errors {
		errorMessages[i] = err.Error()
	}
	return errorMessages
}

func IsValidationErrors(err error) bool {
	var validationErrors *ValidationErrors
	ok := errors.As(err, &validationErrors)
	return ok
}
