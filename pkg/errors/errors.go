package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes are part of the public API; clients switch on them.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeConflict           = "CONFLICT"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// ReasonInsufficientFunds is the machine-readable reason attached to wallet rejections.
const ReasonInsufficientFunds = "insufficient_funds"

const ReasonInsufficientPoints = "insufficient_points"

// AppError is an error that knows how it should be rendered over HTTP.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func NotFoundWithID(resource, id string) *AppError {
	return New(CodeNotFound, resource+" not found", http.StatusNotFound).
		WithDetails(map[string]any{"resource": resource, "id": id})
}

func Validation(message string, details map[string]any) *AppError {
	return New(CodeValidation, message, http.StatusUnprocessableEntity).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

// InsufficientFunds rejects a wallet operation. Amounts are reported in the
// offering currency so clients can show the shortfall.
func InsufficientFunds(required, available float64) *AppError {
	return New(CodeInsufficientFunds, "Insufficient wallet balance", http.StatusBadRequest).WithDetails(map[string]any{
		"reason":    ReasonInsufficientFunds,
		"required":  required,
		"available": available,
	})
}

// InsufficientPoints rejects a redemption larger than the spendable points.
func InsufficientPoints(required, available float64) *AppError {
	return New(CodeInsufficientPoints, "Not enough loyalty points", http.StatusBadRequest).WithDetails(map[string]any{
		"reason":    ReasonInsufficientPoints,
		"required":  required,
		"available": available,
	})
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func RateLimited() *AppError {
	return New(CodeRateLimited, "Rate limit exceeded", http.StatusTooManyRequests)
}

func Timeout(message string) *AppError {
	return New(CodeTimeout, message, http.StatusGatewayTimeout)
}

// Internal hides err from the client; the message is replaced on the wire.
func Internal(message string, err error) *AppError {
	appErr := New(CodeInternal, message, http.StatusInternalServerError)
	appErr.Err = err
	return appErr
}

// IsAppError reports whether err or anything it wraps is an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError unwraps to the first *AppError, or treats err as internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err carries an *AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
