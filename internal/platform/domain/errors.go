package domain

import (
	"errors"
	"fmt"
)

// ErrorKind groups error codes into the categories the HTTP layer maps to status codes.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindUnauthorized ErrorKind = "unauthorized"
	KindConflict     ErrorKind = "conflict"
	KindUpstream     ErrorKind = "upstream"
	KindInternal     ErrorKind = "internal"
)

// Stable error codes returned to API clients.
const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeNotFound                 = "NOT_FOUND"
	CodeForbidden                = "FORBIDDEN"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeConflict                 = "CONFLICT"
	CodeOutOfStock               = "OUT_OF_STOCK"
	CodeVehicleUnavailable       = "VEHICLE_UNAVAILABLE"
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeSelfBookingForbidden     = "SELF_BOOKING_FORBIDDEN"
	CodeInvalidDateRange         = "INVALID_DATE_RANGE"
	CodeSignatureMismatch        = "SIGNATURE_MISMATCH"
	CodeBookingCreationFailed    = "BOOKING_CREATION_FAILED"
	CodePaymentNotCompleted      = "PAYMENT_NOT_COMPLETED"
	CodePaymentAlreadyReconciled = "PAYMENT_ALREADY_RECONCILED"
	CodeUpstreamFailure          = "UPSTREAM_FAILURE"
	CodeInternal                 = "INTERNAL_ERROR"
)

// AppError is the error type every layer returns for expected failures.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of the error carrying structured details.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Sentinels for errors.Is comparisons.
var (
	ErrOutOfStock            = &AppError{Kind: KindConflict, Code: CodeOutOfStock}
	ErrVehicleUnavailable    = &AppError{Kind: KindConflict, Code: CodeVehicleUnavailable}
	ErrInvalidTransition     = &AppError{Kind: KindConflict, Code: CodeInvalidTransition}
	ErrSelfBookingForbidden  = &AppError{Kind: KindConflict, Code: CodeSelfBookingForbidden}
	ErrInvalidDateRange      = &AppError{Kind: KindValidation, Code: CodeInvalidDateRange}
	ErrSignatureMismatch     = &AppError{Kind: KindValidation, Code: CodeSignatureMismatch}
	ErrBookingCreationFailed = &AppError{Kind: KindInternal, Code: CodeBookingCreationFailed}
	ErrPaymentNotCompleted   = &AppError{Kind: KindConflict, Code: CodePaymentNotCompleted}
	ErrPaymentReconciled     = &AppError{Kind: KindConflict, Code: CodePaymentAlreadyReconciled}
	ErrNotFound              = &AppError{Kind: KindNotFound, Code: CodeNotFound}
	ErrForbidden             = &AppError{Kind: KindForbidden, Code: CodeForbidden}
	ErrValidation            = &AppError{Kind: KindValidation, Code: CodeValidation}
	ErrConflict              = &AppError{Kind: KindConflict, Code: CodeConflict}
)

// NewValidationError reports missing or malformed input.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// NewNotFoundError reports an absent entity.
func NewNotFoundError(entity, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %s not found", entity, id),
	}
}

// NewForbiddenError reports an authorization failure.
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// NewUnauthorizedError reports a missing or invalid credential.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NewConflictError reports a generic write conflict, e.g. a stale version.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// NewInvalidStateError reports an illegal state machine transition.
func NewInvalidStateError(from, to string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewOutOfStockError reports a reservation against a vehicle with no stock left.
func NewOutOfStockError(vehicleID string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodeOutOfStock,
		Message: fmt.Sprintf("vehicle %s is out of stock", vehicleID),
	}
}

// NewVehicleUnavailableError wraps the reservation failure that blocked a booking.
func NewVehicleUnavailableError(vehicleID string, cause error) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodeVehicleUnavailable,
		Message: fmt.Sprintf("vehicle %s is not available for booking", vehicleID),
		Err:     cause,
	}
}

// NewSelfBookingError reports an owner trying to rent their own vehicle.
func NewSelfBookingError() *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodeSelfBookingForbidden,
		Message: "owners cannot book their own vehicle",
	}
}

// NewInvalidDateRangeError reports a rental window whose end is not after its start.
func NewInvalidDateRangeError(message string) *AppError {
	return &AppError{Kind: KindValidation, Code: CodeInvalidDateRange, Message: message}
}

// NewSignatureMismatchError reports a payment confirmation that failed verification.
func NewSignatureMismatchError() *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeSignatureMismatch,
		Message: "payment signature verification failed",
	}
}

// NewBookingCreationFailedError reports a verified payment that produced no bookings.
func NewBookingCreationFailedError(details any) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    CodeBookingCreationFailed,
		Message: "payment verified but no booking could be created",
		Details: details,
	}
}

// NewPaymentNotCompletedError reports an invoice request on an unpaid booking.
func NewPaymentNotCompletedError() *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodePaymentNotCompleted,
		Message: "invoice is only available after payment is completed",
	}
}

// NewPaymentAlreadyReconciledError reports a replayed payment confirmation.
func NewPaymentAlreadyReconciledError(paymentID string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Code:    CodePaymentAlreadyReconciled,
		Message: fmt.Sprintf("payment %s has already been reconciled", paymentID),
	}
}

// NewUpstreamError wraps a failure from an external provider.
func NewUpstreamError(provider string, cause error) *AppError {
	return &AppError{
		Kind:    KindUpstream,
		Code:    CodeUpstreamFailure,
		Message: fmt.Sprintf("%s request failed", provider),
		Err:     cause,
	}
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
