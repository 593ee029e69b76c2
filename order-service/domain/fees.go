package domain

import "github.com/brewhub/order-system/shared/models"

// DefaultCurrency is the currency every price in the system is denominated
// in. Order placement rejects items priced in anything else.
const DefaultCurrency = "USD"

// Fee rates applied to the order item total when an actor secures an order.
const (
	commissionRate = 0.15
	deliveryRate   = 0.10
)

var (
	minCommission  = models.NewMoney(100, DefaultCurrency)
	minDeliveryFee = models.NewMoney(200, DefaultCurrency)
)

// CommissionFor computes the shop commission for an order: a percentage of
// the item total with a floor.
func CommissionFor(order *Order) models.Money {
	return order.ItemTotal().Percent(commissionRate).AtLeast(minCommission)
}

// DeliveryFeeFor computes the courier delivery fee for an order: a percentage
// of the item total with a floor.
func DeliveryFeeFor(order *Order) models.Money {
	return order.ItemTotal().Percent(deliveryRate).AtLeast(minDeliveryFee)
}
