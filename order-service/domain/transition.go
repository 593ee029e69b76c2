package domain

import (
	"context"

	"github.com/brewhub/order-system/shared/models"
)

// OwnerField names the claim column a transition is verified against
type OwnerField string

const (
	OwnerShop      OwnerField = "shopId"
	OwnerDeliverer OwnerField = "delivererId"
)

// Role identifies an actor's capability, looked up externally
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleShop      Role = "shop"
	RoleDeliverer Role = "deliverer"
)

// IdentityService is the external capability check. Role storage and lookup
// live outside this service.
type IdentityService interface {
	HasRole(ctx context.Context, actorID string, role Role) (bool, error)
}

// FieldUpdates carries the entity fields a transition writes alongside the
// status change. Absent fields are left untouched by the merge.
type FieldUpdates struct {
	ShopID           *string       `json:"shop_id,omitempty"`
	DelivererID      *string       `json:"deliverer_id,omitempty"`
	PreparedLocation *Location     `json:"prepared_location,omitempty"`
	Commission       *models.Money `json:"commission,omitempty"`
	DeliveryFee      *models.Money `json:"delivery_fee,omitempty"`
}

// IsZero reports whether no field is set
func (u FieldUpdates) IsZero() bool {
	return u.ShopID == nil && u.DelivererID == nil && u.PreparedLocation == nil &&
		u.Commission == nil && u.DeliveryFee == nil
}

// TransitionRequest is the command queued by the saga coordinator after the
// lock is acquired. Delivery is at-least-once and unordered. RecordVersion
// is the status record version observed when the lock was taken; it rides
// through the confirmation so a replayed commit can be told apart from an
// out-of-band mutation.
type TransitionRequest struct {
	CustomerID     models.ID      `json:"customer_id"`
	OrderID        models.ID      `json:"order_id"`
	PreviousStatus OrderStatus    `json:"previous_status"`
	NewStatus      OrderStatus    `json:"new_status"`
	FieldUpdates   FieldUpdates   `json:"field_updates"`
	RecordVersion  models.Version `json:"record_version"`
}

// TransitionConfirmation is re-emitted by the entity-update worker once the
// entity write succeeded; it carries the same shape so the commit can
// re-verify the pre-state instead of trusting queue order.
type TransitionConfirmation struct {
	CustomerID     models.ID      `json:"customer_id"`
	OrderID        models.ID      `json:"order_id"`
	PreviousStatus OrderStatus    `json:"previous_status"`
	NewStatus      OrderStatus    `json:"new_status"`
	FieldUpdates   FieldUpdates   `json:"field_updates"`
	RecordVersion  models.Version `json:"record_version"`
}

// UserNotification is the single externally visible "order moved to state X"
// event, published after a successful commit and never before.
type UserNotification struct {
	CustomerID models.ID   `json:"customer_id"`
	OrderID    models.ID   `json:"order_id"`
	NewStatus  OrderStatus `json:"new_status"`
}
