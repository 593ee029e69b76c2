package application

import (
	"context"
	"testing"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitTransition_Execute(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, record := seedOrder(t, store, repo, domain.StatusReceived)
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusReceived))

	shopID := "shop-1"
	confirmation := &domain.TransitionConfirmation{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		FieldUpdates:   domain.FieldUpdates{ShopID: &shopID},
		RecordVersion:  record.Version,
	}

	useCase := NewCommitTransition(store, publisher)
	require.NoError(t, useCase.Execute(context.Background(), confirmation))

	record, err := store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBrewing, record.Status)
	assert.False(t, record.Updating)
	assert.Nil(t, record.LockedAt)
	require.NotNil(t, record.ShopID)
	assert.Equal(t, shopID, *record.ShopID)
	assert.Equal(t, 2, record.Version.Value)

	// Exactly one notification, after the commit
	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderStatusUpdatedEvent, published[0].EventType)

	var notification domain.UserNotification
	require.NoError(t, published[0].UnmarshalPayload(&notification))
	assert.Equal(t, order.ID, notification.OrderID)
	assert.Equal(t, order.CustomerID, notification.CustomerID)
	assert.Equal(t, domain.StatusBrewing, notification.NewStatus)
}

// A replayed confirmation finds the record past the version it was issued
// against: its commit already landed. It is dropped without a second
// notification.
func TestCommitTransition_Execute_DuplicateDropped(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, record := seedOrder(t, store, repo, domain.StatusReceived)
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusReceived))

	confirmation := &domain.TransitionConfirmation{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		RecordVersion:  record.Version,
	}

	useCase := NewCommitTransition(store, publisher)
	require.NoError(t, useCase.Execute(context.Background(), confirmation))
	require.NoError(t, useCase.Execute(context.Background(), confirmation))

	assert.Len(t, publisher.published(), 1)

	record, err := store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBrewing, record.Status)
	assert.Equal(t, 2, record.Version.Value)
}

// A conflict on a record whose version has not moved past the confirmation's
// is not a replay; the message must fail so the queue retries it.
func TestCommitTransition_Execute_ConflictNotDuplicate(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	// Record still at RECEIVED, unlocked and at the version the confirmation
	// was issued against: no commit has landed for it
	order, record := seedOrder(t, store, repo, domain.StatusReceived)

	confirmation := &domain.TransitionConfirmation{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		RecordVersion:  record.Version,
	}

	useCase := NewCommitTransition(store, publisher)
	err := useCase.Execute(context.Background(), confirmation)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, publisher.published())
}

// A confirmation replaying after the saga moved further on finds the record
// several versions ahead at a different status. It is still positively
// identified as a replay and dropped instead of retrying forever.
func TestCommitTransition_Execute_StaleDuplicateAfterAdvance(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, seeded := seedOrder(t, store, repo, domain.StatusReceived)

	// First transition commits, then a second one advances the record further
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusReceived))
	require.NoError(t, store.Commit(context.Background(), order.ID, domain.StatusReceived, domain.StatusBrewing, domain.FieldUpdates{}))
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusBrewing))
	require.NoError(t, store.Commit(context.Background(), order.ID, domain.StatusBrewing, domain.StatusMade, domain.FieldUpdates{}))

	// The first transition's confirmation redelivers late
	confirmation := &domain.TransitionConfirmation{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		RecordVersion:  seeded.Version,
	}

	useCase := NewCommitTransition(store, publisher)
	require.NoError(t, useCase.Execute(context.Background(), confirmation))

	assert.Empty(t, publisher.published())

	record, err := store.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMade, record.Status)
	assert.Equal(t, 3, record.Version.Value)
}

func TestCommitTransition_Execute_NotificationFailure(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{err: assert.AnError}

	order, seeded := seedOrder(t, store, repo, domain.StatusReceived)
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusReceived))

	confirmation := &domain.TransitionConfirmation{
		CustomerID:     order.CustomerID,
		OrderID:        order.ID,
		PreviousStatus: domain.StatusReceived,
		NewStatus:      domain.StatusBrewing,
		RecordVersion:  seeded.Version,
	}

	useCase := NewCommitTransition(store, publisher)
	err := useCase.Execute(context.Background(), confirmation)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish user notification")

	// The commit itself landed; the retried message resolves as a duplicate
	record, getErr := store.Get(context.Background(), order.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusBrewing, record.Status)
	assert.False(t, record.Updating)
}
