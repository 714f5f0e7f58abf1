package errors

import "errors"

var (
	ErrNotFound = errors.New("payment not found")

	ErrAlreadyExists = errors.New("payment already exists for reservation")

	// ErrStaleStatus reports that the payment moved before a conditional write.
	ErrStaleStatus = errors.New("payment status changed concurrently")

	ErrInvalidID = errors.New("invalid ID format")
)
