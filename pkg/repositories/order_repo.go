package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
)

const orderColumns = `id, order_total, ebt_total, status, success_date, created_at, updated_at`

type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, q database.Querier, order models.Order) error
	// FindByID returns pgx.ErrNoRows when the order does not exist.
	FindByID(ctx context.Context, q database.Querier, orderID uuid.UUID) (models.Order, error)
	// FindByIDForUpdate loads the order and holds its row lock until tx ends.
	// Captures and payment creation for the same order serialize on this lock.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (models.Order, error)
	FindAll(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.Order, error)
	// UpdateStatus writes status, success date and updated_at of the order.
	UpdateStatus(ctx context.Context, q database.Querier, order models.Order) error
	// Delete removes the order (payments cascade). Returns false when nothing was deleted.
	Delete(ctx context.Context, q database.Querier, orderID uuid.UUID) (bool, error)
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, q database.Querier, order models.Order) error {
	_, err := q.Exec(ctx, `
						INSERT INTO orders (id, order_total, ebt_total, status, success_date, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID,
		order.OrderTotal,
		order.EbtTotal,
		order.Status,
		order.SuccessDate,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (o OrderRepositoryImpl) FindByID(ctx context.Context, q database.Querier, orderID uuid.UUID) (models.Order, error) {
	if orderID == uuid.Nil {
		return models.Order{}, errors.New("order id cannot be nil")
	}
	return scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
}

func (o OrderRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (models.Order, error) {
	if orderID == uuid.Nil {
		return models.Order{}, errors.New("order id cannot be nil")
	}
	return scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
}

func (o OrderRepositoryImpl) FindAll(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.Order, error) {
	//calculate offset.
	offset := (pageNumber - 1) * size
	rows, err := q.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at, id LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]models.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (o OrderRepositoryImpl) UpdateStatus(ctx context.Context, q database.Querier, order models.Order) error {
	tag, err := q.Exec(ctx, `UPDATE orders SET status = $1, success_date = $2, updated_at = $3 WHERE id = $4`,
		order.Status, order.SuccessDate, order.UpdatedAt, order.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (o OrderRepositoryImpl) Delete(ctx context.Context, q database.Querier, orderID uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID,
		&order.OrderTotal,
		&order.EbtTotal,
		&order.Status,
		&order.SuccessDate,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}
