package infrastructure

import (
	"context"
	"database/sql"
	"time"

	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// PostgresStatusStore implements domain.StatusStore using PostgreSQL.
// TryLock and Commit are single-row conditional UPDATEs; the guard predicate
// lives in the WHERE clause and a zero row count is the Conflict signal.
type PostgresStatusStore struct {
	db *sqlx.DB
}

// NewPostgresStatusStore creates a new PostgresStatusStore
func NewPostgresStatusStore(db *sqlx.DB) *PostgresStatusStore {
	return &PostgresStatusStore{db: db}
}

// postgresStatusRecord represents a status record row
type postgresStatusRecord struct {
	OrderID     string     `db:"order_id"`
	CustomerID  string     `db:"customer_id"`
	Status      string     `db:"status"`
	Updating    bool       `db:"updating"`
	ShopID      *string    `db:"shop_id"`
	DelivererID *string    `db:"deliverer_id"`
	Version     int        `db:"version"`
	LockedAt    *time.Time `db:"locked_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Create inserts the status record for a newly placed order
func (s *PostgresStatusStore) Create(ctx context.Context, record *domain.StatusRecord) error {
	query := `
		INSERT INTO order_status (
			order_id, customer_id, status, updating,
			shop_id, deliverer_id, version, locked_at,
			created_at, updated_at
		) VALUES (
			:order_id, :customer_id, :status, :updating,
			:shop_id, :deliverer_id, :version, :locked_at,
			:created_at, :updated_at
		)`

	_, err := s.db.NamedExecContext(ctx, query, s.toPostgres(record))
	if err != nil {
		return errors.Wrap(err, "failed to insert status record")
	}

	return nil
}

// Get loads a status record by order ID
func (s *PostgresStatusStore) Get(ctx context.Context, orderID models.ID) (*domain.StatusRecord, error) {
	query := `
		SELECT order_id, customer_id, status, updating,
			   shop_id, deliverer_id, version, locked_at,
			   created_at, updated_at
		FROM order_status
		WHERE order_id = $1`

	var row postgresStatusRecord
	err := s.db.GetContext(ctx, &row, query, orderID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find status record")
	}

	return s.toDomain(&row)
}

// TryLock acquires the per-order advisory lock. The write lands only when
// the record is still in expectedStatus and not already locked; any
// concurrent winner makes the row count zero and the caller sees ErrConflict.
func (s *PostgresStatusStore) TryLock(ctx context.Context, orderID models.ID, expectedStatus domain.OrderStatus) error {
	query := `
		UPDATE order_status
		SET updating = TRUE, locked_at = :locked_at, updated_at = :updated_at
		WHERE order_id = :order_id AND status = :status AND updating = FALSE`

	now := time.Now()
	res, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"order_id":   orderID.String(),
		"status":     expectedStatus.String(),
		"locked_at":  now,
		"updated_at": now,
	})
	if err != nil {
		return errors.Wrap(err, "failed to lock status record")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read lock result")
	}
	if affected == 0 {
		return domain.ErrConflict
	}

	return nil
}

// Commit advances the status, applies the transition's field updates, bumps
// the version and releases the lock, all guarded by the expected pre-state.
func (s *PostgresStatusStore) Commit(ctx context.Context, orderID models.ID, expectedPrevious, newStatus domain.OrderStatus, updates domain.FieldUpdates) error {
	query := `
		UPDATE order_status
		SET status = :new_status,
			updating = FALSE,
			locked_at = NULL,
			shop_id = COALESCE(:shop_id, shop_id),
			deliverer_id = COALESCE(:deliverer_id, deliverer_id),
			version = version + 1,
			updated_at = :updated_at
		WHERE order_id = :order_id AND status = :previous_status AND updating = TRUE`

	res, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"order_id":        orderID.String(),
		"previous_status": expectedPrevious.String(),
		"new_status":      newStatus.String(),
		"shop_id":         updates.ShopID,
		"deliverer_id":    updates.DelivererID,
		"updated_at":      time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to commit status record")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read commit result")
	}
	if affected == 0 {
		return domain.ErrConflict
	}

	return nil
}

// toPostgres converts a domain status record to a row
func (s *PostgresStatusStore) toPostgres(record *domain.StatusRecord) *postgresStatusRecord {
	return &postgresStatusRecord{
		OrderID:     record.OrderID.String(),
		CustomerID:  record.CustomerID.String(),
		Status:      record.Status.String(),
		Updating:    record.Updating,
		ShopID:      record.ShopID,
		DelivererID: record.DelivererID,
		Version:     record.Version.Value,
		LockedAt:    record.LockedAt,
		CreatedAt:   record.Timestamps.CreatedAt,
		UpdatedAt:   record.Timestamps.UpdatedAt,
	}
}

// toDomain converts a row to a domain status record
func (s *PostgresStatusStore) toDomain(row *postgresStatusRecord) (*domain.StatusRecord, error) {
	status, err := domain.ParseStatus(row.Status)
	if err != nil {
		return nil, errors.Wrap(err, "invalid status in store")
	}

	orderID, err := models.NewID(row.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	customerID, err := models.NewID(row.CustomerID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid customer ID")
	}

	return &domain.StatusRecord{
		OrderID:     orderID,
		CustomerID:  customerID,
		Status:      status,
		Updating:    row.Updating,
		ShopID:      row.ShopID,
		DelivererID: row.DelivererID,
		Version:     models.Version{Value: row.Version},
		LockedAt:    row.LockedAt,
		Timestamps: models.Timestamps{
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
	}, nil
}
