package domain

import "errors"

var (
	// ErrValidation marks malformed commands, rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrOrderNotFound is also returned when the caller does not own the order.
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidState wraps messages naming the order's current status.
	ErrInvalidState = errors.New("invalid order state")
	// ErrStatusConflict means a guarded update matched nothing because the
	// status moved underneath it.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrDuplicateOrderCode is raised by stores when a checkout was already
	// persisted for the order code.
	ErrDuplicateOrderCode = errors.New("order code already exists")
)

// IsPermanent reports errors that retrying the same command cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStatusConflict)
}
