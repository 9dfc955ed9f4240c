package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
)

// InstrumentRepository stores credit card and EBT instruments.
type InstrumentRepository interface {
	CreateCreditCard(ctx context.Context, q database.Querier, card models.CreditCard) error
	FindCreditCardByID(ctx context.Context, q database.Querier, cardID uuid.UUID) (models.CreditCard, error)
	FindAllCreditCards(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.CreditCard, error)
	DeleteCreditCard(ctx context.Context, q database.Querier, cardID uuid.UUID) (bool, error)

	CreateEBT(ctx context.Context, q database.Querier, ebt models.EBT) error
	FindEBTByID(ctx context.Context, q database.Querier, ebtID uuid.UUID) (models.EBT, error)
	FindAllEBT(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.EBT, error)
	DeleteEBT(ctx context.Context, q database.Querier, ebtID uuid.UUID) (bool, error)
}

type InstrumentRepositoryImpl struct {
}

func NewInstrumentRepository() InstrumentRepository {
	return &InstrumentRepositoryImpl{}
}

func (r InstrumentRepositoryImpl) CreateCreditCard(ctx context.Context, q database.Querier, card models.CreditCard) error {
	_, err := q.Exec(ctx, `INSERT INTO credit_cards (id, number, last_4, brand, exp_month, exp_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		card.ID, card.Number, card.Last4, card.Brand, card.ExpMonth, card.ExpYear, card.CreatedAt)
	return err
}

func (r InstrumentRepositoryImpl) FindCreditCardByID(ctx context.Context, q database.Querier, cardID uuid.UUID) (models.CreditCard, error) {
	if cardID == uuid.Nil {
		return models.CreditCard{}, fmt.Errorf("invalid credit card ID: %s", cardID.String())
	}
	return scanCreditCard(q.QueryRow(ctx, `SELECT id, number, last_4, brand, exp_month, exp_year, created_at
		FROM credit_cards WHERE id = $1`, cardID))
}

func (r InstrumentRepositoryImpl) FindAllCreditCards(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.CreditCard, error) {
	offset := (pageNumber - 1) * size
	rows, err := q.Query(ctx, `SELECT id, number, last_4, brand, exp_month, exp_year, created_at
		FROM credit_cards ORDER BY created_at, id LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cards := make([]models.CreditCard, 0)
	for rows.Next() {
		card, err := scanCreditCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func (r InstrumentRepositoryImpl) DeleteCreditCard(ctx context.Context, q database.Querier, cardID uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM credit_cards WHERE id = $1`, cardID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r InstrumentRepositoryImpl) CreateEBT(ctx context.Context, q database.Querier, ebt models.EBT) error {
	_, err := q.Exec(ctx, `INSERT INTO ebt_cards (id, number, last_4, state, issue_month, issue_year, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ebt.ID, ebt.Number, ebt.Last4, ebt.State, ebt.IssueMonth, ebt.IssueYear, ebt.CreatedAt)
	return err
}

func (r InstrumentRepositoryImpl) FindEBTByID(ctx context.Context, q database.Querier, ebtID uuid.UUID) (models.EBT, error) {
	if ebtID == uuid.Nil {
		return models.EBT{}, fmt.Errorf("invalid EBT ID: %s", ebtID.String())
	}
	return scanEBT(q.QueryRow(ctx, `SELECT id, number, last_4, state, issue_month, issue_year, created_at
		FROM ebt_cards WHERE id = $1`, ebtID))
}

func (r InstrumentRepositoryImpl) FindAllEBT(ctx context.Context, q database.Querier, pageNumber int, size int) ([]models.EBT, error) {
	offset := (pageNumber - 1) * size
	rows, err := q.Query(ctx, `SELECT id, number, last_4, state, issue_month, issue_year, created_at
		FROM ebt_cards ORDER BY created_at, id LIMIT $1 OFFSET $2`, size, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cards := make([]models.EBT, 0)
	for rows.Next() {
		ebt, err := scanEBT(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, ebt)
	}
	return cards, rows.Err()
}

func (r InstrumentRepositoryImpl) DeleteEBT(ctx context.Context, q database.Querier, ebtID uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx, `DELETE FROM ebt_cards WHERE id = $1`, ebtID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanCreditCard(row pgx.Row) (models.CreditCard, error) {
	var card models.CreditCard
	err := row.Scan(&card.ID, &card.Number, &card.Last4, &card.Brand, &card.ExpMonth, &card.ExpYear, &card.CreatedAt)
	return card, err
}

func scanEBT(row pgx.Row) (models.EBT, error) {
	var ebt models.EBT
	err := row.Scan(&ebt.ID, &ebt.Number, &ebt.Last4, &ebt.State, &ebt.IssueMonth, &ebt.IssueYear, &ebt.CreatedAt)
	return ebt, err
}
