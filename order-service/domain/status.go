package domain

import "github.com/pkg/errors"

// OrderStatus represents a stage in the fixed order lifecycle
type OrderStatus string

const (
	StatusReceived       OrderStatus = "RECEIVED"
	StatusBrewing        OrderStatus = "BREWING"
	StatusMade           OrderStatus = "MADE"
	StatusAwaitingPickup OrderStatus = "AWAITING_PICKUP"
	StatusPickedUp       OrderStatus = "PICKED_UP"
	StatusDelivered      OrderStatus = "DELIVERED"
)

// transitions is the total table of legal lifecycle steps. The path is
// strictly linear: no skips, no reversals, no branching.
var transitions = map[OrderStatus]OrderStatus{
	StatusReceived:       StatusBrewing,
	StatusBrewing:        StatusMade,
	StatusMade:           StatusAwaitingPickup,
	StatusAwaitingPickup: StatusPickedUp,
	StatusPickedUp:       StatusDelivered,
}

// ParseStatus validates a raw status value
func ParseStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	switch status {
	case StatusReceived, StatusBrewing, StatusMade,
		StatusAwaitingPickup, StatusPickedUp, StatusDelivered:
		return status, nil
	}
	return "", errors.Errorf("unknown order status %q", raw)
}

// String returns the wire representation
func (s OrderStatus) String() string {
	return string(s)
}

// Next returns the single legal successor status, if any
func (s OrderStatus) Next() (OrderStatus, bool) {
	next, ok := transitions[s]
	return next, ok
}

// CanTransitionTo reports whether moving from s to target is a legal
// single forward step
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := transitions[s]
	return ok && next == target
}

// IsTerminal reports whether the status has no successor
func (s OrderStatus) IsTerminal() bool {
	_, ok := transitions[s]
	return !ok
}
