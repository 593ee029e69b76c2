package application

import "github.com/pkg/errors"

var (
	// ErrOrderNotAvailable is returned when the order does not exist or is
	// not in the status the requested transition needs.
	ErrOrderNotAvailable = errors.New("order is not available")

	// ErrOrderAlreadyTaken is returned when another actor already claimed
	// the order.
	ErrOrderAlreadyTaken = errors.New("order is already taken")

	// ErrTransitionRejected is returned when the lock could not be acquired:
	// a competing actor or a duplicate request won the race. The caller may
	// re-issue the command; there is no wait queue.
	ErrTransitionRejected = errors.New("failed to secure/update order")

	// ErrNotAuthorized is returned when the actor lacks the required role or
	// does not own the order.
	ErrNotAuthorized = errors.New("not authorized")
)
