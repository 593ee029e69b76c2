package application

import (
	"context"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/models"
	"github.com/brewhub/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AdvanceOrderStatusCommand represents a status advance by the actor that
// already owns the order (shop marking it made, courier picking up and
// delivering).
type AdvanceOrderStatusCommand struct {
	OrderID   string      `json:"order_id"`
	ActorID   string      `json:"actor_id"`
	Role      domain.Role `json:"role"`
	NewStatus string      `json:"new_status"`
}

// roleSteps lists which no-ownership-change transitions each role may request
var roleSteps = map[domain.Role]map[domain.OrderStatus]domain.OrderStatus{
	domain.RoleShop: {
		domain.StatusBrewing: domain.StatusMade,
	},
	domain.RoleDeliverer: {
		domain.StatusAwaitingPickup: domain.StatusPickedUp,
		domain.StatusPickedUp:       domain.StatusDelivered,
	},
}

// AdvanceOrderStatus is the saga coordinator's status-advance entry point.
// Same contract as SecureOrder: validate, lock, enqueue, return immediately.
type AdvanceOrderStatus struct {
	statusStore      domain.StatusStore
	identity         domain.IdentityService
	requestPublisher events.Publisher
}

// NewAdvanceOrderStatus creates a new AdvanceOrderStatus use case
func NewAdvanceOrderStatus(
	statusStore domain.StatusStore,
	identity domain.IdentityService,
	requestPublisher events.Publisher,
) *AdvanceOrderStatus {
	return &AdvanceOrderStatus{
		statusStore:      statusStore,
		identity:         identity,
		requestPublisher: requestPublisher,
	}
}

// Execute attempts to advance the order one step along the lifecycle
func (uc *AdvanceOrderStatus) Execute(ctx context.Context, cmd *AdvanceOrderStatusCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "advance_order_status",
		trace.WithAttributes(
			attribute.String("order_id", cmd.OrderID),
			attribute.String("actor_id", cmd.ActorID),
			attribute.String("new_status", cmd.NewStatus),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		telemetry.RecordCounter(ctx, "saga_advance_total", "Total status advance attempts", 1,
			attribute.String("role", string(cmd.Role)),
			attribute.String("status", status),
		)
		telemetry.RecordHistogram(ctx, "saga_advance_duration_seconds", "Status advance duration", time.Since(start).Seconds(),
			attribute.String("role", string(cmd.Role)),
		)
	}()

	if cmd.OrderID == "" {
		return errors.New("order ID is required")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}

	newStatus, err := domain.ParseStatus(cmd.NewStatus)
	if err != nil {
		return errors.Wrap(err, "invalid new status")
	}

	steps, ok := roleSteps[cmd.Role]
	if !ok {
		return errors.Errorf("role %q cannot advance order status", cmd.Role)
	}

	hasRole, err := uc.identity.HasRole(ctx, cmd.ActorID, cmd.Role)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to check actor role")
	}
	if !hasRole {
		return ErrNotAuthorized
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		return errors.Wrap(err, "invalid order ID")
	}

	record, err := uc.statusStore.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrOrderNotAvailable
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to load status record")
	}

	// Ownership: the actor must be the one recorded on the claim field
	owner := claimedBy(record, cmd.Role)
	if owner == nil || *owner != cmd.ActorID {
		return ErrNotAuthorized
	}

	expected, ok := steps[record.Status]
	if !ok || expected != newStatus || !record.Status.CanTransitionTo(newStatus) {
		return errors.Errorf("invalid new status: %s", cmd.NewStatus)
	}

	if err := uc.statusStore.TryLock(ctx, orderID, record.Status); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return ErrTransitionRejected
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to lock status record")
	}

	request := domain.TransitionRequest{
		CustomerID:     record.CustomerID,
		OrderID:        orderID,
		PreviousStatus: record.Status,
		NewStatus:      newStatus,
		RecordVersion:  record.Version,
	}

	event := events.NewEvent(orderID, events.OrderTransitionRequestedEvent, request)
	if err := uc.requestPublisher.Publish(ctx, event); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to enqueue transition request")
	}

	status = "success"
	return nil
}
