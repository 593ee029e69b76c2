package application

import (
	"context"
	"sync"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/brewhub/order-system/shared/models"
)

// memStatusStore is an in-memory StatusStore with the same conditional-write
// semantics as the Postgres implementation.
type memStatusStore struct {
	mu      sync.Mutex
	records map[models.ID]*domain.StatusRecord

	getErr    error
	lockErr   error
	commitErr error
}

func newMemStatusStore() *memStatusStore {
	return &memStatusStore{records: make(map[models.ID]*domain.StatusRecord)}
}

func (s *memStatusStore) Create(ctx context.Context, record *domain.StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.OrderID] = &clone
	return nil
}

func (s *memStatusStore) Get(ctx context.Context, orderID models.ID) (*domain.StatusRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *memStatusStore) TryLock(ctx context.Context, orderID models.ID, expectedStatus domain.OrderStatus) error {
	if s.lockErr != nil {
		return s.lockErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[orderID]
	if !ok || record.Status != expectedStatus || record.Updating {
		return domain.ErrConflict
	}

	now := time.Now()
	record.Updating = true
	record.LockedAt = &now
	return nil
}

func (s *memStatusStore) Commit(ctx context.Context, orderID models.ID, expectedPrevious, newStatus domain.OrderStatus, updates domain.FieldUpdates) error {
	if s.commitErr != nil {
		return s.commitErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[orderID]
	if !ok || record.Status != expectedPrevious || !record.Updating {
		return domain.ErrConflict
	}

	record.Status = newStatus
	record.Updating = false
	record.LockedAt = nil
	if updates.ShopID != nil {
		record.ShopID = updates.ShopID
	}
	if updates.DelivererID != nil {
		record.DelivererID = updates.DelivererID
	}
	record.Version = record.Version.Update()
	return nil
}

// memOrderRepository is an in-memory OrderRepository
type memOrderRepository struct {
	mu     sync.Mutex
	orders map[models.ID]*domain.Order

	findErr error
	saveErr error
}

func newMemOrderRepository() *memOrderRepository {
	return &memOrderRepository{orders: make(map[models.ID]*domain.Order)}
}

func (r *memOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *memOrderRepository) FindByCustomerAndID(ctx context.Context, customerID, orderID models.ID) (*domain.Order, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok || order.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepository) FindByID(ctx context.Context, orderID models.ID) (*domain.Order, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (r *memOrderRepository) FindByCustomer(ctx context.Context, customerID models.ID) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.CustomerID == customerID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderRepository) FindByShop(ctx context.Context, shopID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.ShopID != nil && *order.ShopID == shopID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderRepository) FindByDeliverer(ctx context.Context, delivererID string) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.DelivererID != nil && *order.DelivererID == delivererID {
			clone := *order
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memOrderRepository) FindAvailable(ctx context.Context, status domain.OrderStatus, owner domain.OwnerField) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.orders {
		if order.Status != status {
			continue
		}
		if owner == domain.OwnerShop && order.ShopID != nil {
			continue
		}
		if owner == domain.OwnerDeliverer && order.DelivererID != nil {
			continue
		}
		clone := *order
		out = append(out, &clone)
	}
	return out, nil
}

// capturePublisher records everything published to it
type capturePublisher struct {
	mu     sync.Mutex
	events []*events.Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if p.err != nil {
		return p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *capturePublisher) published() []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.Event(nil), p.events...)
}

// staticIdentity grants a fixed role set per actor; with no roles configured
// it grants everything
type staticIdentity struct {
	roles map[string][]domain.Role
	err   error
}

func (i *staticIdentity) HasRole(ctx context.Context, actorID string, role domain.Role) (bool, error) {
	if i.err != nil {
		return false, i.err
	}
	if i.roles == nil {
		return true, nil
	}
	for _, granted := range i.roles[actorID] {
		if granted == role {
			return true, nil
		}
	}
	return false, nil
}

func allowAll() *staticIdentity {
	return &staticIdentity{}
}

func grant(actorID string, roles ...domain.Role) *staticIdentity {
	return &staticIdentity{roles: map[string][]domain.Role{actorID: roles}}
}
