// Package model defines the hospital entities held by the aggregate store
// together with the pure calculations and status transitions over them.
package model

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrValidation marks input rejected before any state is touched.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidTransition marks a status change the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInsufficientBalance is returned when a patient balance cannot cover a charge.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientStock is returned when a catalog item cannot cover a dispense.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Invalid wraps ErrValidation with a field level message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
