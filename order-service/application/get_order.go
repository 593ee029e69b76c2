package application

import (
	"context"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/models"
	"github.com/brewhub/order-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GetOrderQuery represents the query to get a single order
type GetOrderQuery struct {
	CustomerID string `json:"customer_id"`
	OrderID    string `json:"order_id"`
}

// GetOrderResponse carries the order and its authoritative status
type GetOrderResponse struct {
	Order  *domain.Order      `json:"order"`
	Status domain.OrderStatus `json:"status"`
}

// GetOrder use case. The status record is the source of truth for the status
// value, so the response reads it from there rather than the entity mirror.
type GetOrder struct {
	orderRepository domain.OrderRepository
	statusStore     domain.StatusStore
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(orderRepository domain.OrderRepository, statusStore domain.StatusStore) *GetOrder {
	return &GetOrder{
		orderRepository: orderRepository,
		statusStore:     statusStore,
	}
}

// Execute executes the get order use case
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*GetOrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "get_order",
		trace.WithAttributes(
			attribute.String("customer_id", query.CustomerID),
			attribute.String("order_id", query.OrderID),
		),
	)
	defer span.End()

	customerID, err := models.NewID(query.CustomerID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	orderID, err := models.NewID(query.OrderID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByCustomerAndID(ctx, customerID, orderID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrOrderNotAvailable
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	status := order.Status
	if record, err := uc.statusStore.Get(ctx, orderID); err == nil {
		status = record.Status
	}

	return &GetOrderResponse{Order: order, Status: status}, nil
}
