package domain

import (
	"testing"

	"github.com/brewhub/order-system/shared/models"
	"github.com/stretchr/testify/assert"
)

func orderWithTotal(cents int64) *Order {
	return &Order{
		Items: []OrderItem{
			{ProductID: "latte", CoffeeType: "latte", BasePrice: models.NewMoney(cents, "USD")},
		},
	}
}

func TestCommissionFor(t *testing.T) {
	tests := []struct {
		name      string
		itemTotal int64
		expected  int64
	}{
		{name: "percentage above floor", itemTotal: 10000, expected: 1500},
		{name: "floor applies to small orders", itemTotal: 400, expected: 100},
		{name: "exactly at floor", itemTotal: 667, expected: 100},
		{name: "rounds to nearest cent", itemTotal: 1001, expected: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommissionFor(orderWithTotal(tt.itemTotal))
			assert.Equal(t, tt.expected, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestDeliveryFeeFor(t *testing.T) {
	tests := []struct {
		name      string
		itemTotal int64
		expected  int64
	}{
		{name: "percentage above floor", itemTotal: 10000, expected: 1000},
		{name: "floor applies to small orders", itemTotal: 500, expected: 200},
		{name: "exactly at floor", itemTotal: 2000, expected: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeliveryFeeFor(orderWithTotal(tt.itemTotal))
			assert.Equal(t, tt.expected, got.Amount)
			assert.Equal(t, "USD", got.Currency)
		})
	}
}

func TestOrder_ItemTotal(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: "flat-white", CoffeeType: "flat white", BasePrice: models.NewMoney(450, "USD")},
			{ProductID: "espresso", CoffeeType: "espresso", BasePrice: models.NewMoney(300, "USD")},
		},
	}

	total := order.ItemTotal()
	assert.Equal(t, int64(750), total.Amount)
	assert.Equal(t, "USD", total.Currency)
}
