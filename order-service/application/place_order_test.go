package application

import (
	"context"
	"testing"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlaceOrderCommand() *PlaceOrderCommand {
	return &PlaceOrderCommand{
		CustomerID: models.GenerateUUID().String(),
		Items: []PlaceOrderItem{
			{ProductID: "cappuccino", CoffeeType: "cappuccino", MilkType: "whole", BasePrice: models.NewMoney(450, "USD")},
		},
		DeliveryTime:     time.Now().Add(2 * time.Hour),
		DeliveryLocation: domain.Location{Address: "4 Ferry Rd", City: "Portland", ZipCode: "97201"},
		Payment:          domain.PaymentInfo{Method: "card", Reference: "tok_123"},
	}
}

func TestPlaceOrder_Execute(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	cmd := validPlaceOrderCommand()
	useCase := NewPlaceOrder(repo, store, allowAll(), publisher)
	response, err := useCase.Execute(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, response.Order)

	order := response.Order
	assert.Equal(t, domain.StatusReceived, order.Status)
	assert.NotEmpty(t, order.ID)
	require.Len(t, order.Items, 1)
	assert.NotEmpty(t, order.Items[0].ID)

	// Entity and status record both created
	saved, err := repo.FindByCustomerAndID(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, saved.Status)

	record, err := store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, record.Status)
	assert.False(t, record.Updating)
	assert.Nil(t, record.ShopID)
	assert.Equal(t, 1, record.Version.Value)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderStatusUpdatedEvent, published[0].EventType)
}

func TestPlaceOrder_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(cmd *PlaceOrderCommand)
		expectedError string
	}{
		{
			name:          "missing customer ID",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.CustomerID = "" },
			expectedError: "customer ID is required",
		},
		{
			name:          "no items",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Items = nil },
			expectedError: "order must have items",
		},
		{
			name:          "item without product",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Items[0].ProductID = "" },
			expectedError: "missing product ID",
		},
		{
			name:          "item without coffee type",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Items[0].CoffeeType = "" },
			expectedError: "must have coffee type specified",
		},
		{
			name:          "non-positive price",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Items[0].BasePrice = models.NewMoney(0, "USD") },
			expectedError: "must have a positive price",
		},
		{
			name:          "foreign currency price",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Items[0].BasePrice = models.NewMoney(500, "EUR") },
			expectedError: "must be priced in USD",
		},
		{
			name:          "no delivery time",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.DeliveryTime = time.Time{} },
			expectedError: "order must have a delivery time",
		},
		{
			name:          "delivery time too soon",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.DeliveryTime = time.Now().Add(10 * time.Minute) },
			expectedError: "at least 30 minutes in the future",
		},
		{
			name:          "delivery time in the past",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.DeliveryTime = time.Now().Add(-time.Hour) },
			expectedError: "at least 30 minutes in the future",
		},
		{
			name:          "missing delivery location",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.DeliveryLocation = domain.Location{} },
			expectedError: "order must have a delivery location",
		},
		{
			name:          "missing payment",
			mutate:        func(cmd *PlaceOrderCommand) { cmd.Payment = domain.PaymentInfo{} },
			expectedError: "order must have payment information",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStatusStore()
			repo := newMemOrderRepository()
			publisher := &capturePublisher{}

			cmd := validPlaceOrderCommand()
			tt.mutate(cmd)

			useCase := NewPlaceOrder(repo, store, allowAll(), publisher)
			_, err := useCase.Execute(context.Background(), cmd)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
			assert.Empty(t, publisher.published())
		})
	}
}

func TestPlaceOrder_Execute_RequiresCustomerRole(t *testing.T) {
	cmd := validPlaceOrderCommand()

	useCase := NewPlaceOrder(newMemOrderRepository(), newMemStatusStore(), grant(cmd.CustomerID, domain.RoleShop), &capturePublisher{})
	_, err := useCase.Execute(context.Background(), cmd)

	assert.ErrorIs(t, err, ErrNotAuthorized)
}
