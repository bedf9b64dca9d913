package usecase

import (
	"errors"

	"scrim-booking/pkg/utils"
)

var (
	ErrNotBookable         = errors.New("scrim is not open for booking")
	ErrSlotFull            = errors.New("scrim is full")
	ErrAlreadyBooked       = errors.New("player already booked this scrim")
	ErrOrderCreateFailed   = errors.New("payment order creation failed")
	ErrSignatureMismatch   = errors.New("webhook signature mismatch")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrUnknownOrder        = errors.New("unknown payment order")
	ErrTransientProvider   = errors.New("payment provider temporarily unavailable")
	ErrScrimNotFound       = errors.New("scrim not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidPaymentState = errors.New("payment is not in a state that allows this action")
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("not allowed to manage this scrim")
)

// ValidationError carries the per-field messages of a rejected request. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + utils.FormatValidationErrors(e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
