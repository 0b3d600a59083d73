package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can branch on semantics instead of message text.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_FAILED"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindConflict           Kind = "CONFLICT"
	KindNotFound           Kind = "NOT_FOUND"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
	KindTooManyRequests    Kind = "TOO_MANY_REQUESTS"
	KindConnection         Kind = "CONNECTION_ERROR"
	KindPoolExhausted      Kind = "POOL_EXHAUSTED"
	KindQuery              Kind = "QUERY_ERROR"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Infrastructure reports whether errors of this kind must be hidden from API callers.
func (k Kind) Infrastructure() bool {
	switch k {
	case KindConnection, KindPoolExhausted, KindQuery, KindInternal:
		return true
	}
	return false
}

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
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
func NewDomainError(kind Kind, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: string(kind), Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, message, http.StatusBadRequest, details)
}

// NewInvalidCredentials is returned for both unknown accounts and wrong passwords.
func NewInvalidCredentials() error {
	return NewDomainError(KindInvalidCredentials, "Invalid email or password", http.StatusUnauthorized, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, message, http.StatusConflict, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewTokenExpired(err error) error {
	de := NewDomainError(KindTokenExpired, "token expired", http.StatusUnauthorized, nil)
	de.Err = err
	return de
}

func NewTokenInvalid(err error) error {
	de := NewDomainError(KindTokenInvalid, "invalid token", http.StatusUnauthorized, nil)
	de.Err = err
	return de
}

func NewTooManyRequests(message string) error {
	return NewDomainError(KindTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func NewConnectionError(err error) error {
	return infrastructure(KindConnection, "database connection failed", err)
}

func NewPoolExhausted(err error) error {
	return infrastructure(KindPoolExhausted, "database connection pool exhausted", err)
}

func NewQueryError(err error) error {
	return infrastructure(KindQuery, "database query failed", err)
}

func NewInternalError(err error) error {
	return infrastructure(KindInternal, "internal server error", err)
}

func infrastructure(kind Kind, message string, err error) *DomainError {
	return &DomainError{
		Kind:       kind,
		Code:       string(kind),
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// KindOf returns the kind of the first DomainError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
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
	return infrastructure(KindInternal, "internal server error", err)
}

// PublicMessage is the message safe to hand to an API caller.
func (e *DomainError) PublicMessage() string {
	if e.Kind.Infrastructure() {
		return "internal server error"
	}
	return e.Message
}
