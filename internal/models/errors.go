package models

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicate          = errors.New("already registered")
	ErrInvalidCredentials = errors.New("No user found or incorrect password")
	ErrUnauthenticated    = errors.New("Not authenticated")
	ErrForbidden          = errors.New("You do not own this post")
	ErrNotFound           = errors.New("not found")
	ErrInvalidOTP         = errors.New("Incorrect OTP")
	ErrExpiredOTP         = errors.New("OTP expired")
	ErrConfirmation       = errors.New(`You must type "DELETE" exactly to confirm account deletion`)
	ErrSelfFollow         = errors.New("You cannot follow yourself")
	ErrTooManyAttempts    = errors.New("too many OTP attempts, request a new code")
)

// DuplicateError reports a unique-index conflict on a single field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return "User already registered"
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " already registered"
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrInvalidOTP),
		errors.Is(err, ErrExpiredOTP),
		errors.Is(err, ErrConfirmation),
		errors.Is(err, ErrSelfFollow):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var domainErrors = []error{
	ErrValidation, ErrInvalidCredentials, ErrUnauthenticated, ErrForbidden, ErrNotFound,
	ErrInvalidOTP, ErrExpiredOTP, ErrConfirmation, ErrSelfFollow, ErrTooManyAttempts,
}

// PublicMessage returns the text safe to show a client. Domain errors are
// built as "<message>: <sentinel>", and the sentinel suffix is dropped.
// Anything unrecognised is reported generically.
func PublicMessage(err error) string {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Error()
	}
	for _, sentinel := range domainErrors {
		if errors.Is(err, sentinel) {
			return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
		}
	}
	return "Internal server error"
}
