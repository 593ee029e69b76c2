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

// Work queue scopes: orders still up for grabs vs orders the actor owns
const (
	ScopeAvailable = "available"
	ScopeMine      = "mine"
)

// ListPendingWorkQuery represents the query for a shop's or deliverer's
// work queue
type ListPendingWorkQuery struct {
	ActorID string      `json:"actor_id"`
	Role    domain.Role `json:"role"`
	Scope   string      `json:"scope"`
}

// WorkItem is one order on the work queue. For available deliveries the fee
// preview tells the deliverer what accepting the order pays.
type WorkItem struct {
	Order      *domain.Order `json:"order"`
	FeePreview *models.Money `json:"fee_preview,omitempty"`
}

// ListPendingWorkResponse carries the work queue
type ListPendingWorkResponse struct {
	Items []WorkItem `json:"items"`
}

// ListPendingWork use case. Shops see RECEIVED orders no shop has claimed;
// deliverers see MADE orders no deliverer has claimed. Scope "mine" returns
// the actor's claimed orders instead.
type ListPendingWork struct {
	orderRepository domain.OrderRepository
	identity        domain.IdentityService
}

// NewListPendingWork creates a new ListPendingWork use case
func NewListPendingWork(orderRepository domain.OrderRepository, identity domain.IdentityService) *ListPendingWork {
	return &ListPendingWork{
		orderRepository: orderRepository,
		identity:        identity,
	}
}

// Execute executes the list pending work use case
func (uc *ListPendingWork) Execute(ctx context.Context, query *ListPendingWorkQuery) (*ListPendingWorkResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "list_pending_work",
		trace.WithAttributes(
			attribute.String("actor_id", query.ActorID),
			attribute.String("role", string(query.Role)),
			attribute.String("scope", query.Scope),
		),
	)
	defer span.End()

	if query.Role != domain.RoleShop && query.Role != domain.RoleDeliverer {
		return nil, errors.Errorf("unsupported work queue role: %s", query.Role)
	}
	if query.Scope != ScopeAvailable && query.Scope != ScopeMine {
		return nil, errors.Errorf("unsupported work queue scope: %s", query.Scope)
	}

	ok, err := uc.identity.HasRole(ctx, query.ActorID, query.Role)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to check actor role")
	}
	if !ok {
		return nil, ErrNotAuthorized
	}

	var orders []*domain.Order
	switch {
	case query.Scope == ScopeMine && query.Role == domain.RoleShop:
		orders, err = uc.orderRepository.FindByShop(ctx, query.ActorID)
	case query.Scope == ScopeMine && query.Role == domain.RoleDeliverer:
		orders, err = uc.orderRepository.FindByDeliverer(ctx, query.ActorID)
	case query.Role == domain.RoleShop:
		orders, err = uc.orderRepository.FindAvailable(ctx, domain.StatusReceived, domain.OwnerShop)
	default:
		orders, err = uc.orderRepository.FindAvailable(ctx, domain.StatusMade, domain.OwnerDeliverer)
	}
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to list work queue")
	}

	items := make([]WorkItem, 0, len(orders))
	for _, order := range orders {
		item := WorkItem{Order: order}
		if query.Scope == ScopeAvailable && query.Role == domain.RoleDeliverer {
			fee := domain.DeliveryFeeFor(order)
			item.FeePreview = &fee
		}
		items = append(items, item)
	}

	return &ListPendingWorkResponse{Items: items}, nil
}
