package application

import (
	"context"
	"testing"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func claimRecord(t *testing.T, store *memStatusStore, record *domain.StatusRecord, role domain.Role, actorID string) {
	t.Helper()

	if role == domain.RoleShop {
		record.ShopID = &actorID
	} else {
		record.DelivererID = &actorID
	}
	require.NoError(t, store.Create(context.Background(), record))
}

func TestAdvanceOrderStatus_Execute(t *testing.T) {
	tests := []struct {
		name       string
		from       domain.OrderStatus
		to         domain.OrderStatus
		role       domain.Role
		shouldPass bool
	}{
		{name: "shop marks made", from: domain.StatusBrewing, to: domain.StatusMade, role: domain.RoleShop, shouldPass: true},
		{name: "deliverer picks up", from: domain.StatusAwaitingPickup, to: domain.StatusPickedUp, role: domain.RoleDeliverer, shouldPass: true},
		{name: "deliverer delivers", from: domain.StatusPickedUp, to: domain.StatusDelivered, role: domain.RoleDeliverer, shouldPass: true},
		{name: "shop cannot deliver", from: domain.StatusPickedUp, to: domain.StatusDelivered, role: domain.RoleShop, shouldPass: false},
		{name: "skip a stage", from: domain.StatusBrewing, to: domain.StatusAwaitingPickup, role: domain.RoleShop, shouldPass: false},
		{name: "backwards", from: domain.StatusMade, to: domain.StatusBrewing, role: domain.RoleShop, shouldPass: false},
		{name: "terminal order", from: domain.StatusDelivered, to: domain.StatusDelivered, role: domain.RoleDeliverer, shouldPass: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStatusStore()
			repo := newMemOrderRepository()
			publisher := &capturePublisher{}

			order, record := seedOrder(t, store, repo, tt.from)
			claimRecord(t, store, record, tt.role, "actor-1")

			useCase := NewAdvanceOrderStatus(store, allowAll(), publisher)
			err := useCase.Execute(context.Background(), &AdvanceOrderStatusCommand{
				OrderID:   order.ID.String(),
				ActorID:   "actor-1",
				Role:      tt.role,
				NewStatus: tt.to.String(),
			})

			if !tt.shouldPass {
				require.Error(t, err)
				assert.Empty(t, publisher.published())
				return
			}

			require.NoError(t, err)
			require.Len(t, publisher.published(), 1)

			var request domain.TransitionRequest
			require.NoError(t, publisher.published()[0].UnmarshalPayload(&request))
			assert.Equal(t, tt.from, request.PreviousStatus)
			assert.Equal(t, tt.to, request.NewStatus)
			assert.True(t, request.FieldUpdates.IsZero())

			locked, err := store.Get(context.Background(), order.ID)
			require.NoError(t, err)
			assert.True(t, locked.Updating)
		})
	}
}

func TestAdvanceOrderStatus_Execute_OwnershipEnforced(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, record := seedOrder(t, store, repo, domain.StatusBrewing)
	claimRecord(t, store, record, domain.RoleShop, "shop-1")

	useCase := NewAdvanceOrderStatus(store, allowAll(), publisher)

	// A different shop, even with the right role, does not own this order
	err := useCase.Execute(context.Background(), &AdvanceOrderStatusCommand{
		OrderID:   order.ID.String(),
		ActorID:   "shop-2",
		Role:      domain.RoleShop,
		NewStatus: domain.StatusMade.String(),
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// Unclaimed record: no owner to match
	unclaimed, _ := seedOrder(t, store, repo, domain.StatusAwaitingPickup)
	err = useCase.Execute(context.Background(), &AdvanceOrderStatusCommand{
		OrderID:   unclaimed.ID.String(),
		ActorID:   "courier-9",
		Role:      domain.RoleDeliverer,
		NewStatus: domain.StatusPickedUp.String(),
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	assert.Empty(t, publisher.published())
}

func TestAdvanceOrderStatus_Execute_LockHeld(t *testing.T) {
	store := newMemStatusStore()
	repo := newMemOrderRepository()
	publisher := &capturePublisher{}

	order, record := seedOrder(t, store, repo, domain.StatusBrewing)
	claimRecord(t, store, record, domain.RoleShop, "shop-1")
	require.NoError(t, store.TryLock(context.Background(), order.ID, domain.StatusBrewing))

	useCase := NewAdvanceOrderStatus(store, allowAll(), publisher)
	err := useCase.Execute(context.Background(), &AdvanceOrderStatusCommand{
		OrderID:   order.ID.String(),
		ActorID:   "shop-1",
		Role:      domain.RoleShop,
		NewStatus: domain.StatusMade.String(),
	})

	assert.ErrorIs(t, err, ErrTransitionRejected)
	assert.Empty(t, publisher.published())
}

func TestAdvanceOrderStatus_Execute_UnknownStatus(t *testing.T) {
	useCase := NewAdvanceOrderStatus(newMemStatusStore(), allowAll(), &capturePublisher{})
	err := useCase.Execute(context.Background(), &AdvanceOrderStatusCommand{
		OrderID:   models.GenerateUUID().String(),
		ActorID:   "shop-1",
		Role:      domain.RoleShop,
		NewStatus: "CANCELLED",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid new status")
}
