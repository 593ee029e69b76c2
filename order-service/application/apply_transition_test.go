package application

import (
	"context"
	"testing"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTransition_Execute(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, _ := seedOrder(t, store, repo, domain.StatusReceived)

	shopID := "shop-1"
	commission := models.NewMoney(1500, "USD")
	request := &domain.TransitionRequest{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		FieldUpdates: domain.FieldUpdates{
			ShopID:     &shopID,
			Commission: &commission,
		},
		RecordVersion: models.NewVersion(),
	}

	useCase := NewApplyTransition(repo, publisher)
	require.NoError(t, useCase.Execute(context.Background(), request))

	// Entity overwritten with the merged state
	saved, err := repo.FindByCustomerAndID(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBrewing, saved.Status)
	require.NotNil(t, saved.ShopID)
	assert.Equal(t, shopID, *saved.ShopID)
	require.NotNil(t, saved.Commission)
	assert.Equal(t, int64(1500), saved.Commission.Amount)

	// Confirmation re-emitted with the same transition shape
	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderTransitionConfirmedEvent, published[0].EventType)

	var confirmation domain.TransitionConfirmation
	require.NoError(t, published[0].UnmarshalPayload(&confirmation))
	assert.Equal(t, request.OrderID, confirmation.OrderID)
	assert.Equal(t, request.PreviousStatus, confirmation.PreviousStatus)
	assert.Equal(t, request.NewStatus, confirmation.NewStatus)
	assert.Equal(t, request.FieldUpdates, confirmation.FieldUpdates)
	assert.Equal(t, request.RecordVersion, confirmation.RecordVersion)
}

// A redelivered request overwrites the entity with the same state and emits
// another confirmation; nothing diverges.
func TestApplyTransition_Execute_Redelivery(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, _ := seedOrder(t, store, repo, domain.StatusReceived)

	shopID := "shop-1"
	request := &domain.TransitionRequest{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		FieldUpdates:   domain.FieldUpdates{ShopID: &shopID},
	}

	useCase := NewApplyTransition(repo, publisher)
	require.NoError(t, useCase.Execute(context.Background(), request))

	afterFirst, err := repo.FindByCustomerAndID(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)

	require.NoError(t, useCase.Execute(context.Background(), request))

	afterSecond, err := repo.FindByCustomerAndID(context.Background(), order.CustomerID, order.ID)
	require.NoError(t, err)

	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, afterFirst.ShopID, afterSecond.ShopID)
	assert.Len(t, publisher.published(), 2)
}

func TestApplyTransition_Execute_OrderMissing(t *testing.T) {
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	request := &domain.TransitionRequest{
		CustomerID:     models.GenerateUUID(),
		OrderID:        models.GenerateUUID(),
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
	}

	useCase := NewApplyTransition(repo, publisher)
	err := useCase.Execute(context.Background(), request)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, publisher.published())
}

func TestApplyTransition_Execute_PublishFailure(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{err: errors.New("queue unavailable")}

	order, _ := seedOrder(t, store, repo, domain.StatusReceived)

	request := &domain.TransitionRequest{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
	}

	useCase := NewApplyTransition(repo, publisher)
	err := useCase.Execute(context.Background(), request)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue transition confirmation")
}
