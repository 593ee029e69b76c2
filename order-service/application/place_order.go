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

// Orders must be placed with enough lead time for a shop to claim and
// prepare them.
const minimumDeliveryLead = 30 * time.Minute

// PlaceOrderItem is one requested line item
type PlaceOrderItem struct {
	ProductID  string       `json:"product_id"`
	CoffeeType string       `json:"coffee_type"`
	MilkType   string       `json:"milk_type,omitempty"`
	BasePrice  models.Money `json:"base_price"`
}

// PlaceOrderCommand represents a customer's order submission
type PlaceOrderCommand struct {
	CustomerID       string             `json:"customer_id"`
	Items            []PlaceOrderItem   `json:"items"`
	DeliveryTime     time.Time          `json:"delivery_time"`
	DeliveryLocation domain.Location    `json:"delivery_location"`
	Payment          domain.PaymentInfo `json:"payment"`
}

// PlaceOrderResponse carries the accepted order back to the caller
type PlaceOrderResponse struct {
	Order *domain.Order `json:"order"`
}

// PlaceOrder creates the order entity and its status record (RECEIVED,
// unlocked) and publishes the initial status notification. Later transitions
// run through the saga; placement itself is a plain two-record create.
type PlaceOrder struct {
	orderRepository       domain.OrderRepository
	statusStore           domain.StatusStore
	identity              domain.IdentityService
	notificationPublisher events.Publisher
}

// NewPlaceOrder creates a new PlaceOrder use case
func NewPlaceOrder(
	orderRepository domain.OrderRepository,
	statusStore domain.StatusStore,
	identity domain.IdentityService,
	notificationPublisher events.Publisher,
) *PlaceOrder {
	return &PlaceOrder{
		orderRepository:       orderRepository,
		statusStore:           statusStore,
		identity:              identity,
		notificationPublisher: notificationPublisher,
	}
}

// Execute validates and stores a new order
func (uc *PlaceOrder) Execute(ctx context.Context, cmd *PlaceOrderCommand) (*PlaceOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "place_order",
		trace.WithAttributes(
			attribute.String("customer_id", cmd.CustomerID),
			attribute.Int("item_count", len(cmd.Items)),
		),
	)
	defer span.End()

	if err := uc.validateCommand(cmd); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid command")
	}

	ok, err := uc.identity.HasRole(ctx, cmd.CustomerID, domain.RoleCustomer)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to check actor role")
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	customerID, err := models.NewID(cmd.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	order := &domain.Order{
		CustomerID:       customerID,
		ID:               models.GenerateUUID(),
		Status:           domain.StatusReceived,
		DeliveryTime:     cmd.DeliveryTime,
		DeliveryLocation: cmd.DeliveryLocation,
		Payment:          cmd.Payment,
		Timestamps:       models.NewTimestamps(),
	}

	for _, item := range cmd.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:         models.GenerateUUID(),
			ProductID:  item.ProductID,
			CoffeeType: item.CoffeeType,
			MilkType:   item.MilkType,
			BasePrice:  item.BasePrice,
		})
	}

	if err := uc.orderRepository.Save(ctx, order); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to save order")
	}

	record := &domain.StatusRecord{
		OrderID:    order.ID,
		CustomerID: customerID,
		Status:     domain.StatusReceived,
		Updating:   false,
		Version:    models.NewVersion(),
		Timestamps: models.NewTimestamps(),
	}

	if err := uc.statusStore.Create(ctx, record); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to create status record")
	}

	notification := domain.UserNotification{
		CustomerID: customerID,
		OrderID:    order.ID,
		NewStatus:  domain.StatusReceived,
	}
	event := events.NewEvent(order.ID, events.OrderStatusUpdatedEvent, notification)
	if err := uc.notificationPublisher.Publish(ctx, event); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to publish order notification")
	}

	telemetry.RecordCounter(ctx, "orders_placed_total", "Total orders placed", 1)

	return &PlaceOrderResponse{Order: order}, nil
}

func (uc *PlaceOrder) validateCommand(cmd *PlaceOrderCommand) error {
	if cmd.CustomerID == "" {
		return errors.New("customer ID is required")
	}

	if len(cmd.Items) == 0 {
		return errors.New("order must have items")
	}
	for i, item := range cmd.Items {
		if item.ProductID == "" {
			return errors.Errorf("order item %d missing product ID", i+1)
		}
		if item.CoffeeType == "" {
			return errors.Errorf("order item %d must have coffee type specified", i+1)
		}
		if !item.BasePrice.IsPositive() {
			return errors.Errorf("order item %d must have a positive price", i+1)
		}
		if item.BasePrice.Currency != domain.DefaultCurrency {
			return errors.Errorf("order item %d must be priced in %s", i+1, domain.DefaultCurrency)
		}
	}

	if cmd.DeliveryTime.IsZero() {
		return errors.New("order must have a delivery time")
	}
	if cmd.DeliveryTime.Before(time.Now().Add(minimumDeliveryLead)) {
		return errors.Errorf("order delivery time must be at least %d minutes in the future", int(minimumDeliveryLead.Minutes()))
	}

	if cmd.DeliveryLocation.Address == "" || cmd.DeliveryLocation.City == "" {
		return errors.New("order must have a delivery location")
	}

	if cmd.Payment.Method == "" || cmd.Payment.Reference == "" {
		return errors.New("order must have payment information")
	}

	return nil
}
