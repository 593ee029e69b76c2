package domain

import (
	"context"
	"time"

	"github.com/brewhub/order-system/shared/models"
)

// Location is a street address used for preparation and delivery points
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zip_code"`
}

// PaymentInfo carries the customer's payment reference. Charging it is the
// payment provider's problem, not this service's.
type PaymentInfo struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// OrderItem is a single priced line item on an order
type OrderItem struct {
	ID         models.ID    `json:"id"`
	ProductID  string       `json:"product_id"`
	CoffeeType string       `json:"coffee_type"`
	MilkType   string       `json:"milk_type,omitempty"`
	BasePrice  models.Money `json:"base_price"`
}

// Order is the full business record for an order, keyed by
// (customer ID, order ID). Its Status field mirrors the StatusRecord and is
// advanced only by the entity-update worker during a transition.
type Order struct {
	CustomerID models.ID   `json:"customer_id"`
	ID         models.ID   `json:"id"`
	Status     OrderStatus `json:"status"`

	Items            []OrderItem  `json:"items"`
	DeliveryTime     time.Time    `json:"delivery_time"`
	DeliveryLocation Location     `json:"delivery_location"`
	Payment          PaymentInfo  `json:"payment"`

	ShopID           *string       `json:"shop_id,omitempty"`
	DelivererID      *string       `json:"deliverer_id,omitempty"`
	PreparedLocation *Location     `json:"prepared_location,omitempty"`
	Commission       *models.Money `json:"commission,omitempty"`
	DeliveryFee      *models.Money `json:"delivery_fee,omitempty"`

	Timestamps models.Timestamps `json:"-"`
}

// ItemTotal sums the base prices of all items. Placement enforces that every
// item is priced in DefaultCurrency, so the amounts add directly.
func (o *Order) ItemTotal() models.Money {
	total := models.Money{Currency: DefaultCurrency}
	for _, item := range o.Items {
		total.Amount += item.BasePrice.Amount
	}
	return total
}

// Apply merges a transition's field updates into the entity, including the
// new status value. The merge is a pure function of the updates, so
// re-applying the same transition yields the same entity state.
func (o *Order) Apply(newStatus OrderStatus, updates FieldUpdates) {
	o.Status = newStatus
	if updates.ShopID != nil {
		o.ShopID = updates.ShopID
	}
	if updates.DelivererID != nil {
		o.DelivererID = updates.DelivererID
	}
	if updates.PreparedLocation != nil {
		o.PreparedLocation = updates.PreparedLocation
	}
	if updates.Commission != nil {
		o.Commission = updates.Commission
	}
	if updates.DeliveryFee != nil {
		o.DeliveryFee = updates.DeliveryFee
	}
	o.Timestamps = o.Timestamps.Update()
}

// OrderRepository is the order entity store. Writes are unconditional
// overwrites; during a transition the entity-update worker is the sole writer.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	FindByCustomerAndID(ctx context.Context, customerID, orderID models.ID) (*Order, error)
	// FindByID looks up an order by its ID alone; the work queue surfaces
	// know the order but not its customer.
	FindByID(ctx context.Context, orderID models.ID) (*Order, error)
	FindByCustomer(ctx context.Context, customerID models.ID) ([]*Order, error)
	FindByShop(ctx context.Context, shopID string) ([]*Order, error)
	FindByDeliverer(ctx context.Context, delivererID string) ([]*Order, error)
	// FindAvailable lists unclaimed orders in the given status: owner is the
	// claim column (shop or deliverer) that must still be empty.
	FindAvailable(ctx context.Context, status OrderStatus, owner OwnerField) ([]*Order, error)
}
