package application

import (
	"context"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ApplyTransition is the entity-update worker. It consumes one transition
// request per invocation, merges the field updates into the order entity and
// re-emits the transition as a confirmation for the status commit.
//
// Requests may be redelivered; the overwrite is a pure function of the
// message content, so re-applying the same request is harmless.
type ApplyTransition struct {
	orderRepository       domain.OrderRepository
	confirmationPublisher events.Publisher
}

// NewApplyTransition creates a new ApplyTransition use case
func NewApplyTransition(
	orderRepository domain.OrderRepository,
	confirmationPublisher events.Publisher,
) *ApplyTransition {
	return &ApplyTransition{
		orderRepository:       orderRepository,
		confirmationPublisher: confirmationPublisher,
	}
}

// Execute applies one transition request to the order entity
func (uc *ApplyTransition) Execute(ctx context.Context, request *domain.TransitionRequest) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "apply_transition",
		trace.WithAttributes(
			attribute.String("order_id", request.OrderID.String()),
			attribute.String("previous_status", request.PreviousStatus.String()),
			attribute.String("new_status", request.NewStatus.String()),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		telemetry.RecordCounter(ctx, "saga_entity_updates_total", "Total entity update attempts", 1,
			attribute.String("status", status),
		)
		telemetry.RecordHistogram(ctx, "saga_entity_update_duration_seconds", "Entity update duration", time.Since(start).Seconds(),
			attribute.String("status", status),
		)
	}()

	order, err := uc.orderRepository.FindByCustomerAndID(ctx, request.CustomerID, request.OrderID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotFound) {
			// A locked status record without its entity is a data-integrity
			// defect; there is no compensating action, so fail the message
			// and let the queue keep retrying it.
			return errors.Wrapf(err, "order %s not found for transition", request.OrderID)
		}
		return errors.Wrap(err, "failed to load order")
	}

	order.Apply(request.NewStatus, request.FieldUpdates)

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to save order")
	}

	confirmation := domain.TransitionConfirmation{
		CustomerID:     request.CustomerID,
		OrderID:        request.OrderID,
		PreviousStatus: request.PreviousStatus,
		NewStatus:      request.NewStatus,
		FieldUpdates:   request.FieldUpdates,
		RecordVersion:  request.RecordVersion,
	}

	event := events.NewEvent(request.OrderID, events.OrderTransitionConfirmedEvent, confirmation)
	if err := uc.confirmationPublisher.Publish(ctx, event); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to enqueue transition confirmation")
	}

	status = "success"
	return nil
}
