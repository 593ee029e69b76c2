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

// ListOrdersQuery represents the query for a customer's order history
type ListOrdersQuery struct {
	CustomerID string `json:"customer_id"`
}

// ListOrdersResponse carries the customer's orders
type ListOrdersResponse struct {
	Orders []*domain.Order `json:"orders"`
}

// ListOrders use case
type ListOrders struct {
	orderRepository domain.OrderRepository
}

// NewListOrders creates a new ListOrders use case
func NewListOrders(orderRepository domain.OrderRepository) *ListOrders {
	return &ListOrders{
		orderRepository: orderRepository,
	}
}

// Execute executes the list orders use case
func (uc *ListOrders) Execute(ctx context.Context, query *ListOrdersQuery) (*ListOrdersResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "list_orders",
		trace.WithAttributes(
			attribute.String("customer_id", query.CustomerID),
		),
	)
	defer span.End()

	customerID, err := models.NewID(query.CustomerID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	orders, err := uc.orderRepository.FindByCustomer(ctx, customerID)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return &ListOrdersResponse{Orders: orders}, nil
}
