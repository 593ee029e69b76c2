package application

import (
	"context"
	"fmt"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CommitTransition is the status-commit worker. It consumes one transition
// confirmation per invocation, performs the conditional write that advances
// the status record and releases the lock, then publishes the user
// notification. The notification is emitted after the commit, never before,
// and only once per successful commit.
type CommitTransition struct {
	statusStore           domain.StatusStore
	notificationPublisher events.Publisher
}

// NewCommitTransition creates a new CommitTransition use case
func NewCommitTransition(
	statusStore domain.StatusStore,
	notificationPublisher events.Publisher,
) *CommitTransition {
	return &CommitTransition{
		statusStore:           statusStore,
		notificationPublisher: notificationPublisher,
	}
}

// Execute commits one confirmed transition to the status record
func (uc *CommitTransition) Execute(ctx context.Context, confirmation *domain.TransitionConfirmation) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "commit_transition",
		trace.WithAttributes(
			attribute.String("order_id", confirmation.OrderID.String()),
			attribute.String("previous_status", confirmation.PreviousStatus.String()),
			attribute.String("new_status", confirmation.NewStatus.String()),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		telemetry.RecordCounter(ctx, "saga_commits_total", "Total status commit attempts", 1,
			attribute.String("status", status),
		)
		telemetry.RecordHistogram(ctx, "saga_commit_duration_seconds", "Status commit duration", time.Since(start).Seconds(),
			attribute.String("status", status),
		)
	}()

	err := uc.statusStore.Commit(ctx, confirmation.OrderID, confirmation.PreviousStatus, confirmation.NewStatus, confirmation.FieldUpdates)
	if err == nil {
		notification := domain.UserNotification{
			CustomerID: confirmation.CustomerID,
			OrderID:    confirmation.OrderID,
			NewStatus:  confirmation.NewStatus,
		}

		event := events.NewEvent(confirmation.OrderID, events.OrderStatusUpdatedEvent, notification)
		if err := uc.notificationPublisher.Publish(ctx, event); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "failed to publish user notification")
		}

		status = "success"
		return nil
	}

	if !errors.Is(err, domain.ErrConflict) {
		span.RecordError(err)
		return errors.Wrap(err, "failed to commit status record")
	}

	// Conflict: either a duplicate confirmation replaying after its commit
	// already landed, or the record was mutated out of band. The version
	// counter settles it: every commit bumps the version, so a record past
	// the version this confirmation was issued against has already absorbed
	// this transition, possibly followed by later ones. Such replays are
	// dropped without re-notifying the user.
	record, getErr := uc.statusStore.Get(ctx, confirmation.OrderID)
	if getErr == nil && record.Version.Value > confirmation.RecordVersion.Value {
		fmt.Printf("Dropping duplicate confirmation for order %s (%s -> %s, issued at version %d, record at %d)\n",
			confirmation.OrderID, confirmation.PreviousStatus, confirmation.NewStatus,
			confirmation.RecordVersion.Value, record.Version.Value)
		status = "duplicate"
		return nil
	}

	span.RecordError(err)
	return errors.Wrapf(err, "status record for order %s not in expected state %s", confirmation.OrderID, confirmation.PreviousStatus)
}
