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

// GetWorkItemQuery represents a shop's or deliverer's single-order lookup
type GetWorkItemQuery struct {
	OrderID string      `json:"order_id"`
	ActorID string      `json:"actor_id"`
	Role    domain.Role `json:"role"`
}

// GetWorkItemResponse carries the work item
type GetWorkItemResponse struct {
	Item WorkItem `json:"item"`
}

// GetWorkItem use case. The order is visible to the actor if they already
// claimed it, or if it is still up for grabs in their role's securing status;
// anything else reads as not available, same as the work queue listing.
type GetWorkItem struct {
	orderRepository domain.OrderRepository
	identity        domain.IdentityService
}

// NewGetWorkItem creates a new GetWorkItem use case
func NewGetWorkItem(orderRepository domain.OrderRepository, identity domain.IdentityService) *GetWorkItem {
	return &GetWorkItem{
		orderRepository: orderRepository,
		identity:        identity,
	}
}

// Execute executes the get work item use case
func (uc *GetWorkItem) Execute(ctx context.Context, query *GetWorkItemQuery) (*GetWorkItemResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "get_work_item",
		trace.WithAttributes(
			attribute.String("order_id", query.OrderID),
			attribute.String("actor_id", query.ActorID),
			attribute.String("role", string(query.Role)),
		),
	)
	defer span.End()

	if query.Role != domain.RoleShop && query.Role != domain.RoleDeliverer {
		return nil, errors.Errorf("unsupported work queue role: %s", query.Role)
	}

	ok, err := uc.identity.HasRole(ctx, query.ActorID, query.Role)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to check actor role")
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	orderID, err := models.NewID(query.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	order, err := uc.orderRepository.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrOrderNotAvailable
		}
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load order")
	}

	item, visible := uc.workItemFor(order, query)
	if !visible {
		return nil, ErrOrderNotAvailable
	}

	return &GetWorkItemResponse{Item: item}, nil
}

func (uc *GetWorkItem) workItemFor(order *domain.Order, query *GetWorkItemQuery) (WorkItem, bool) {
	if query.Role == domain.RoleShop {
		if order.ShopID != nil {
			return WorkItem{Order: order}, *order.ShopID == query.ActorID
		}
		return WorkItem{Order: order}, order.Status == domain.StatusReceived
	}

	if order.DelivererID != nil {
		return WorkItem{Order: order}, *order.DelivererID == query.ActorID
	}
	if order.Status != domain.StatusMade {
		return WorkItem{}, false
	}

	fee := domain.DeliveryFeeFor(order)
	return WorkItem{Order: order, FeePreview: &fee}, true
}
