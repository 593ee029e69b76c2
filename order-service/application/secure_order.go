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

// SecureOrderCommand represents an actor's attempt to claim an order
type SecureOrderCommand struct {
	OrderID string      `json:"order_id"`
	ActorID string      `json:"actor_id"`
	Role    domain.Role `json:"role"`

	// PreparedLocation is supplied by shops so couriers know the pickup point
	PreparedLocation *domain.Location `json:"prepared_location,omitempty"`
}

// SecureOrder is the saga coordinator's securing entry point. It validates
// the requested claim against the current status record, acquires the
// per-order lock and enqueues the transition request. It returns as soon as
// the request is queued; the entity write and the notification happen
// asynchronously behind the two queues.
type SecureOrder struct {
	statusStore      domain.StatusStore
	orderRepository  domain.OrderRepository
	identity         domain.IdentityService
	requestPublisher events.Publisher
}

// NewSecureOrder creates a new SecureOrder use case
func NewSecureOrder(
	statusStore domain.StatusStore,
	orderRepository domain.OrderRepository,
	identity domain.IdentityService,
	requestPublisher events.Publisher,
) *SecureOrder {
	return &SecureOrder{
		statusStore:      statusStore,
		orderRepository:  orderRepository,
		identity:         identity,
		requestPublisher: requestPublisher,
	}
}

// Execute attempts to secure the order for the acting shop or courier
func (uc *SecureOrder) Execute(ctx context.Context, cmd *SecureOrderCommand) error {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "secure_order",
		trace.WithAttributes(
			attribute.String("order_id", cmd.OrderID),
			attribute.String("actor_id", cmd.ActorID),
			attribute.String("role", string(cmd.Role)),
		),
	)
	defer span.End()

	status := "error"
	defer func() {
		telemetry.RecordCounter(ctx, "saga_secure_total", "Total secure attempts", 1,
			attribute.String("role", string(cmd.Role)),
			attribute.String("status", status),
		)
		telemetry.RecordHistogram(ctx, "saga_secure_duration_seconds", "Secure attempt duration", time.Since(start).Seconds(),
			attribute.String("role", string(cmd.Role)),
		)
	}()

	if err := uc.validateCommand(cmd); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "invalid command")
	}

	ok, err := uc.identity.HasRole(ctx, cmd.ActorID, cmd.Role)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to check actor role")
	}
	if !ok {
		return ErrNotAuthorized
	}

	orderID, err := models.NewID(cmd.OrderID)
	if err != nil {
		span.RecordError(err)
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

	requiredStatus, newStatus := securingStep(cmd.Role)

	if claimedBy(record, cmd.Role) != nil {
		return ErrOrderAlreadyTaken
	}
	if record.Status != requiredStatus {
		return ErrOrderNotAvailable
	}

	order, err := uc.orderRepository.FindByCustomerAndID(ctx, record.CustomerID, orderID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to load order")
	}

	updates := uc.buildFieldUpdates(cmd, order)

	// Admission control: whichever conditional write lands first wins,
	// everyone else observes a conflict and reports failure to their caller.
	if err := uc.statusStore.TryLock(ctx, orderID, requiredStatus); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return ErrTransitionRejected
		}
		span.RecordError(err)
		return errors.Wrap(err, "failed to lock status record")
	}

	request := domain.TransitionRequest{
		CustomerID:     record.CustomerID,
		OrderID:        orderID,
		PreviousStatus: requiredStatus,
		NewStatus:      newStatus,
		FieldUpdates:   updates,
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

func (uc *SecureOrder) validateCommand(cmd *SecureOrderCommand) error {
	if cmd.OrderID == "" {
		return errors.New("order ID is required")
	}
	if cmd.ActorID == "" {
		return errors.New("actor ID is required")
	}
	if cmd.Role != domain.RoleShop && cmd.Role != domain.RoleDeliverer {
		return errors.Errorf("role %q cannot secure orders", cmd.Role)
	}
	return nil
}

func (uc *SecureOrder) buildFieldUpdates(cmd *SecureOrderCommand, order *domain.Order) domain.FieldUpdates {
	actor := cmd.ActorID
	if cmd.Role == domain.RoleShop {
		commission := domain.CommissionFor(order)
		return domain.FieldUpdates{
			ShopID:           &actor,
			PreparedLocation: cmd.PreparedLocation,
			Commission:       &commission,
		}
	}

	fee := domain.DeliveryFeeFor(order)
	return domain.FieldUpdates{
		DelivererID: &actor,
		DeliveryFee: &fee,
	}
}

// securingStep maps the securing role to its lifecycle step
func securingStep(role domain.Role) (required, next domain.OrderStatus) {
	if role == domain.RoleShop {
		return domain.StatusReceived, domain.StatusBrewing
	}
	return domain.StatusMade, domain.StatusAwaitingPickup
}

// claimedBy returns the claim already recorded for the role's owner field
func claimedBy(record *domain.StatusRecord, role domain.Role) *string {
	if role == domain.RoleShop {
		return record.ShopID
	}
	return record.DelivererID
}
