package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDistance is returned when a quote is requested for a zero or
	// negative distance.
	ErrInvalidDistance = errors.New("distance must be positive")

	// ErrMissingAddress is returned when a route is missing an endpoint.
	ErrMissingAddress = errors.New("pickup and destination addresses are required")

	// ErrMissingPassenger is returned when passenger name or phone is empty.
	ErrMissingPassenger = errors.New("passenger name and phone are required")

	// ErrMissingPaymentReference is returned when booking creation lacks a
	// payment intent id.
	ErrMissingPaymentReference = errors.New("payment reference is required")

	// ErrInvalidPrice is returned when a booking carries a non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrRideNotFound is returned when the referenced ride does not exist.
	ErrRideNotFound = errors.New("ride not found")

	// ErrDriverNotFound is returned when the referenced driver does not exist.
	ErrDriverNotFound = errors.New("driver not found")

	// ErrRideTerminal is returned when a transition is attempted on a ride
	// already in a terminal state.
	ErrRideTerminal = errors.New("ride is already in a terminal state")

	// ErrInvalidDriver is returned when driver fields fail validation.
	ErrInvalidDriver = errors.New("driver name, phone and vehicle number are required")

	// ErrInvalidDriverStatus is returned for an unknown driver status value.
	ErrInvalidDriverStatus = errors.New("invalid driver status")

	// ErrDuplicateVehicle is returned when a vehicle number is already taken.
	ErrDuplicateVehicle = errors.New("vehicle number already registered")

	// ErrDiscountNotFound is returned when a code does not exist or is inactive.
	ErrDiscountNotFound = errors.New("discount code not found or inactive")

	// ErrDiscountNotYetValid is returned before a code's validity window opens.
	ErrDiscountNotYetValid = errors.New("discount code is not yet valid")

	// ErrDiscountExpired is returned after a code's validity window closes.
	ErrDiscountExpired = errors.New("discount code has expired")

	// ErrDiscountExhausted is returned when a code reached its usage limit.
	ErrDiscountExhausted = errors.New("discount code usage limit reached")

	// ErrInvalidDiscount is returned when discount code fields fail validation.
	ErrInvalidDiscount = errors.New("discount code, type and value are required")

	// ErrDuplicateCode is returned when a discount code string is taken.
	ErrDuplicateCode = errors.New("discount code already exists")

	// ErrInvalidDateRange is returned when an analytics range is inverted.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrMalformedReport is returned when a delivery-status batch is missing
	// required fields.
	ErrMalformedReport = errors.New("malformed delivery report")

	// ErrInvalidSignature is returned when a payment webhook fails signature
	// verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// MinOrderError rejects a discount code because the order is below the code's
// minimum. It carries the minimum so callers can show it.
type MinOrderError struct {
	Minimum float64
}

func (e *MinOrderError) Error() string {
	return fmt.Sprintf("order amount is below the minimum of %.2f for this code", e.Minimum)
}
