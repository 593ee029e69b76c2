package domain

import (
	"context"
	"time"

	"github.com/brewhub/order-system/shared/models"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional write's guard predicate
	// did not hold
	ErrConflict = errors.New("conditional write conflict")
)

// StatusRecord is the lock-bearing, authoritative record of an order's
// current lifecycle stage. It is created when the order is placed and
// mutated only through StatusStore.TryLock and StatusStore.Commit.
type StatusRecord struct {
	OrderID    models.ID
	CustomerID models.ID
	Status     OrderStatus
	Updating   bool

	// ShopID and DelivererID record which actor claimed the order; they are
	// written by Commit as part of the securing transitions.
	ShopID      *string
	DelivererID *string

	// Version increases by one on every commit. A confirmation that finds the
	// record past the version it was issued against is a replay: its commit
	// already landed, possibly followed by later transitions.
	Version models.Version

	// LockedAt is set by TryLock. An old LockedAt with Updating still true is
	// the operator signal for a stuck saga.
	LockedAt   *time.Time
	Timestamps models.Timestamps
}

// StatusStore is the keyed record store holding per-order lifecycle state.
// Every write is a single-key conditional write; there is no multi-key
// transaction because the updating flag fully serializes each order's
// transitions.
type StatusStore interface {
	// Create inserts the record for a newly placed order
	// (status RECEIVED, updating false).
	Create(ctx context.Context, record *StatusRecord) error

	// Get loads the record, returning ErrNotFound when absent.
	Get(ctx context.Context, orderID models.ID) (*StatusRecord, error)

	// TryLock sets updating=true guarded by
	// status == expectedStatus AND updating == false.
	// Returns ErrConflict when the guard does not hold. This is the only
	// admission-control point into the saga.
	TryLock(ctx context.Context, orderID models.ID, expectedStatus OrderStatus) error

	// Commit advances the status and releases the lock, guarded by
	// status == expectedPrevious AND updating == true, applying the
	// transition's field updates and bumping the version.
	// Returns ErrConflict when the guard does not hold.
	Commit(ctx context.Context, orderID models.ID, expectedPrevious, newStatus OrderStatus, updates FieldUpdates) error
}
