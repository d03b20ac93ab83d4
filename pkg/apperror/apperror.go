package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed to clients
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeSlotUnavailable    = "SLOT_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeGroundNotFound     = "GROUND_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

// Error is a typed domain error carrying its HTTP status.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// WithDetail returns a copy of e with an extra detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

var (
	ErrValidationFailed   = New(http.StatusBadRequest, CodeValidationFailed, "validation failed")
	ErrSlotUnavailable    = New(http.StatusConflict, CodeSlotUnavailable, "slot unavailable")
	ErrNotFound           = New(http.StatusNotFound, CodeNotFound, "not found")
	ErrGroundNotFound     = New(http.StatusNotFound, CodeGroundNotFound, "ground not found")
	ErrUnauthorized       = New(http.StatusUnauthorized, CodeUnauthorized, "authentication required")
	ErrForbidden          = New(http.StatusForbidden, CodeForbidden, "permission denied")
	ErrInvalidTransition  = New(http.StatusConflict, CodeInvalidTransition, "invalid status transition")
	ErrGatewayUnavailable = New(http.StatusBadGateway, CodeGatewayUnavailable, "payment gateway unavailable")
	ErrStoreUnavailable   = New(http.StatusServiceUnavailable, CodeStoreUnavailable, "store unavailable")
)

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
