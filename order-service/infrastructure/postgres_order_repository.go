package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresOrderRepository implements domain.OrderRepository using PostgreSQL.
// Saves are unconditional upserts: during a transition the entity-update
// worker is the sole writer, so no guard predicate is needed here.
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents an order row; structured fields are stored as JSONB
type postgresOrder struct {
	CustomerID       string          `db:"customer_id"`
	ID               string          `db:"id"`
	Status           string          `db:"status"`
	Items            json.RawMessage `db:"items"`
	DeliveryTime     time.Time       `db:"delivery_time"`
	DeliveryLocation json.RawMessage `db:"delivery_location"`
	Payment          json.RawMessage `db:"payment"`
	ShopID           *string         `db:"shop_id"`
	DelivererID      *string         `db:"deliverer_id"`
	PreparedLocation json.RawMessage `db:"prepared_location"`
	Commission       json.RawMessage `db:"commission"`
	DeliveryFee      json.RawMessage `db:"delivery_fee"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

const orderColumns = `customer_id, id, status, items, delivery_time,
	   delivery_location, payment, shop_id, deliverer_id,
	   prepared_location, commission, delivery_fee, created_at, updated_at`

// Save overwrites the order record
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			customer_id, id, status, items, delivery_time,
			delivery_location, payment, shop_id, deliverer_id,
			prepared_location, commission, delivery_fee, created_at, updated_at
		) VALUES (
			:customer_id, :id, :status, :items, :delivery_time,
			:delivery_location, :payment, :shop_id, :deliverer_id,
			:prepared_location, :commission, :delivery_fee, :created_at, :updated_at
		)
		ON CONFLICT (customer_id, id) DO UPDATE SET
			status = EXCLUDED.status,
			items = EXCLUDED.items,
			delivery_time = EXCLUDED.delivery_time,
			delivery_location = EXCLUDED.delivery_location,
			payment = EXCLUDED.payment,
			shop_id = EXCLUDED.shop_id,
			deliverer_id = EXCLUDED.deliverer_id,
			prepared_location = EXCLUDED.prepared_location,
			commission = EXCLUDED.commission,
			delivery_fee = EXCLUDED.delivery_fee,
			updated_at = EXCLUDED.updated_at`

	row, err := r.toPostgres(order)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return errors.Wrap(err, "failed to save order")
	}

	return nil
}

// FindByCustomerAndID finds an order by its composite key
func (r *PostgresOrderRepository) FindByCustomerAndID(ctx context.Context, customerID, orderID models.ID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1 AND id = $2`

	var row postgresOrder
	err := r.db.GetContext(ctx, &row, query, customerID.String(), orderID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&row)
}

// FindByID finds an order by its ID alone
func (r *PostgresOrderRepository) FindByID(ctx context.Context, orderID models.ID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1`

	var row postgresOrder
	err := r.db.GetContext(ctx, &row, query, orderID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&row)
}

// FindByCustomer finds all orders for a customer
func (r *PostgresOrderRepository) FindByCustomer(ctx context.Context, customerID models.ID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC`

	return r.selectOrders(ctx, query, customerID.String())
}

// FindByShop finds all orders claimed by a shop
func (r *PostgresOrderRepository) FindByShop(ctx context.Context, shopID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE shop_id = $1
		ORDER BY created_at DESC`

	return r.selectOrders(ctx, query, shopID)
}

// FindByDeliverer finds all orders claimed by a deliverer
func (r *PostgresOrderRepository) FindByDeliverer(ctx context.Context, delivererID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE deliverer_id = $1
		ORDER BY created_at DESC`

	return r.selectOrders(ctx, query, delivererID)
}

// FindAvailable lists unclaimed orders in the given status
func (r *PostgresOrderRepository) FindAvailable(ctx context.Context, status domain.OrderStatus, owner domain.OwnerField) ([]*domain.Order, error) {
	ownerColumn := "shop_id"
	if owner == domain.OwnerDeliverer {
		ownerColumn = "deliverer_id"
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND ` + ownerColumn + ` IS NULL
		ORDER BY delivery_time ASC`

	return r.selectOrders(ctx, query, status.String())
}

func (r *PostgresOrderRepository) selectOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	var rows []postgresOrder
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to select orders")
	}

	orders := make([]*domain.Order, len(rows))
	for i := range rows {
		order, err := r.toDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		orders[i] = order
	}

	return orders, nil
}

// toPostgres converts a domain order to a row
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) (*postgresOrder, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal items")
	}

	deliveryLocation, err := json.Marshal(order.DeliveryLocation)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal delivery location")
	}

	payment, err := json.Marshal(order.Payment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payment")
	}

	row := &postgresOrder{
		CustomerID:       order.CustomerID.String(),
		ID:               order.ID.String(),
		Status:           order.Status.String(),
		Items:            items,
		DeliveryTime:     order.DeliveryTime,
		DeliveryLocation: deliveryLocation,
		Payment:          payment,
		ShopID:           order.ShopID,
		DelivererID:      order.DelivererID,
		CreatedAt:        order.Timestamps.CreatedAt,
		UpdatedAt:        order.Timestamps.UpdatedAt,
	}

	if order.PreparedLocation != nil {
		if row.PreparedLocation, err = json.Marshal(order.PreparedLocation); err != nil {
			return nil, errors.Wrap(err, "failed to marshal prepared location")
		}
	}
	if order.Commission != nil {
		if row.Commission, err = json.Marshal(order.Commission); err != nil {
			return nil, errors.Wrap(err, "failed to marshal commission")
		}
	}
	if order.DeliveryFee != nil {
		if row.DeliveryFee, err = json.Marshal(order.DeliveryFee); err != nil {
			return nil, errors.Wrap(err, "failed to marshal delivery fee")
		}
	}

	return row, nil
}

// toDomain converts a row to a domain order
func (r *PostgresOrderRepository) toDomain(row *postgresOrder) (*domain.Order, error) {
	customerID, err := models.NewID(row.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	orderID, err := models.NewID(row.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	status, err := domain.ParseStatus(row.Status)
	if err != nil {
		return nil, errors.Wrap(err, "invalid status in store")
	}

	order := &domain.Order{
		CustomerID:   customerID,
		ID:           orderID,
		Status:       status,
		DeliveryTime: row.DeliveryTime,
		ShopID:       row.ShopID,
		DelivererID:  row.DelivererID,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}

	if err := json.Unmarshal(row.Items, &order.Items); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal items")
	}
	if err := json.Unmarshal(row.DeliveryLocation, &order.DeliveryLocation); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal delivery location")
	}
	if err := json.Unmarshal(row.Payment, &order.Payment); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal payment")
	}
	if len(row.PreparedLocation) > 0 {
		if err := json.Unmarshal(row.PreparedLocation, &order.PreparedLocation); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal prepared location")
		}
	}
	if len(row.Commission) > 0 {
		if err := json.Unmarshal(row.Commission, &order.Commission); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal commission")
		}
	}
	if len(row.DeliveryFee) > 0 {
		if err := json.Unmarshal(row.DeliveryFee, &order.DeliveryFee); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal delivery fee")
		}
	}

	return order, nil
}
