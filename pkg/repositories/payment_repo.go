package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
)

const paymentColumns = `id, order_id, amount, description, payment_method, credit_card_id, ebt_id,
	status, success_date, last_processing_error, created_at, updated_at`

// PaymentRepository defines the interface for payment repository.
type PaymentRepository interface {
	Create(ctx context.Context, q database.Querier, payment models.Payment) error
	FindByID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (models.Payment, error)
	// FindByOrderID returns the payments of an order in creation order.
	FindByOrderID(ctx context.Context, q database.Querier, orderID uuid.UUID) ([]models.Payment, error)
	FindAll(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.Payment, error)
	// UpdateOutcome writes status, success date, last processing error and updated_at of the payment.
	UpdateOutcome(ctx context.Context, q database.Querier, payment models.Payment) error
	Delete(ctx context.Context, q database.Querier, paymentID uuid.UUID) (bool, error)
}

type PaymentRepositoryImpl struct {
}

func NewPaymentRepository() PaymentRepository {
	return &PaymentRepositoryImpl{}
}

func (p PaymentRepositoryImpl) Create(ctx context.Context, q database.Querier, payment models.Payment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO payments (id, order_id, amount, description, payment_method, credit_card_id, ebt_id,
		                      status, success_date, last_processing_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		payment.ID,
		payment.OrderID,
		payment.Amount,
		payment.Description,
		payment.PaymentMethod,
		payment.CreditCardID,
		payment.EbtID,
		payment.Status,
		payment.SuccessDate,
		payment.LastProcessingError,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return err
}

func (p PaymentRepositoryImpl) FindByID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (models.Payment, error) {
	if paymentID == uuid.Nil {
		return models.Payment{}, errors.New("payment id cannot be nil")
	}
	return scanPayment(q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, paymentID))
}

func (p PaymentRepositoryImpl) FindByOrderID(ctx context.Context, q database.Querier, orderID uuid.UUID) ([]models.Payment, error) {
	rows, err := q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (p PaymentRepositoryImpl) FindAll(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.Payment, error) {
	offset := (pageNumber - 1) * size
	rows, err := q.Query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at, id LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

func (p PaymentRepositoryImpl) UpdateOutcome(ctx context.Context, q database.Querier, payment models.Payment) error {
	tag, err := q.Exec(ctx, `
		UPDATE payments SET status = $1, success_date = $2, last_processing_error = $3, updated_at = $4
		WHERE id = $5`,
		payment.Status, payment.SuccessDate, payment.LastProcessingError, payment.UpdatedAt, payment.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (p PaymentRepositoryImpl) Delete(ctx context.Context, q database.Querier, paymentID uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, paymentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collectPayments(rows pgx.Rows) ([]models.Payment, error) {
	defer rows.Close()
	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPayment(row pgx.Row) (models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Description,
		&payment.PaymentMethod,
		&payment.CreditCardID,
		&payment.EbtID,
		&payment.Status,
		&payment.SuccessDate,
		&payment.LastProcessingError,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	return payment, err
}
