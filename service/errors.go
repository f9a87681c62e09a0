package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures so transport layers can map them to a status code.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	KindValidation              Kind = "validation_error"
	KindNotFound                Kind = "not_found"
	KindForbidden               Kind = "forbidden"
	KindConflict                Kind = "conflict"
	KindDependency              Kind = "dependency_error"
	KindPersistenceVerification Kind = "persistence_verification_failed"
	KindInternal                Kind = "internal_error"
)

// Error carries a kind, a message fit for end users and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// Reasons. They are matched with errors.Is through *Error.
var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrProductUnavailable    = errors.New("product unavailable")
	ErrProductInactive       = errors.New("product inactive")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrCartChanged           = errors.New("cart changed during checkout")
	ErrMissingPayee          = errors.New("missing payee identifier")
	ErrInvalidPayee          = errors.New("invalid payee identifier")
	ErrWrongPaymentMethod    = errors.New("wrong payment method")
	ErrOrderNotFound         = errors.New("order not found")
	ErrNotOrderOwner         = errors.New("order belongs to another user")
	ErrIllegalTransition     = errors.New("illegal state transition")
	ErrPaymentConfirmed      = errors.New("payment already confirmed")
	ErrRefundContactRequired = errors.New("refund contact required")
	ErrRefundNotRequested    = errors.New("refund not requested")
	ErrRefundProcessed       = errors.New("refund already processed")
	ErrConcurrentUpdate      = errors.New("order was modified concurrently")
	ErrPersistenceMismatch   = errors.New("persisted value does not match written value")
	ErrNotificationNotFound  = errors.New("notification not found")

	// Repository contract errors.
	ErrRecordNotFound = errors.New("record not found")
	ErrStaleWrite     = errors.New("stale write")
)

func newError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: cause, Message: fmt.Sprintf(format, args...)}
}

func validationError(cause error, format string, args ...any) error {
	return newError(KindValidation, cause, format, args...)
}

func notFoundError(cause error, format string, args ...any) error {
	return newError(KindNotFound, cause, format, args...)
}

func forbiddenError(cause error, format string, args ...any) error {
	return newError(KindForbidden, cause, format, args...)
}

func conflictError(cause error, format string, args ...any) error {
	return newError(KindConflict, cause, format, args...)
}

func dependencyError(cause error, format string, args ...any) error {
	return newError(KindDependency, cause, format, args...)
}

// KindOf returns the kind attached to err, or KindInternal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// internalError wraps unexpected repository failures, keeping already classified errors intact.
func internalError(err error, op string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindInternal, Message: op + " failed", Cause: err}
}
