package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/rules"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	apiviews "github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type InstrumentService interface {
	CreateCreditCard(ctx context.Context, traceID string, req apiviews.CreditCardRequest) (views.CreditCard, error)
	GetCreditCard(ctx context.Context, traceID string, id uuid.UUID) (views.CreditCard, error)
	ListCreditCards(ctx context.Context, traceID string, page, size int) ([]views.CreditCard, error)
	DeleteCreditCard(ctx context.Context, traceID string, id uuid.UUID) error

	CreateEBT(ctx context.Context, traceID string, req apiviews.EBTRequest) (views.EBT, error)
	GetEBT(ctx context.Context, traceID string, id uuid.UUID) (views.EBT, error)
	ListEBT(ctx context.Context, traceID string, page, size int) ([]views.EBT, error)
	DeleteEBT(ctx context.Context, traceID string, id uuid.UUID) error
}

type InstrumentServiceImpl struct {
	ServiceConfig
	repo repositories.InstrumentRepository
}

func NewInstrumentService(cfg ServiceConfig, repo repositories.InstrumentRepository) InstrumentService {
	return &InstrumentServiceImpl{ServiceConfig: cfg, repo: repo}
}

func (s *InstrumentServiceImpl) CreateCreditCard(ctx context.Context, traceID string, req apiviews.CreditCardRequest) (views.CreditCard, error) {
	now := s.now()
	expYear, err := requireYear("expYear", req.ExpYear, now)
	if err != nil {
		return views.CreditCard{}, err
	}
	card := models.CreditCard{
		ID:        uuid.New(),
		Number:    req.Number,
		Last4:     req.Last4,
		Brand:     req.Brand,
		ExpMonth:  req.ExpMonth,
		ExpYear:   expYear,
		CreatedAt: now,
	}
	if err := rules.ValidateInstrumentConsistency(card, now); err != nil {
		return views.CreditCard{}, err
	}
	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.CreateCreditCard(ctx, tx, card)
	})
	if err != nil {
		return views.CreditCard{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	s.Logger.Info("credit_card_created", zap.String(pkg.TraceId, traceID), zap.String("credit_card_id", card.ID.String()))
	return card.ToView(), nil
}

func (s *InstrumentServiceImpl) GetCreditCard(ctx context.Context, traceID string, id uuid.UUID) (views.CreditCard, error) {
	card, err := s.repo.FindCreditCardByID(ctx, s.Reader, id)
	if err != nil {
		return views.CreditCard{}, handleLookupError(traceID, s.Logger, err, "Credit card", id)
	}
	return card.ToView(), nil
}

func (s *InstrumentServiceImpl) ListCreditCards(ctx context.Context, traceID string, page, size int) ([]views.CreditCard, error) {
	cards, err := s.repo.FindAllCreditCards(ctx, s.Reader, page, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	out := make([]views.CreditCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ToView())
	}
	return out, nil
}

func (s *InstrumentServiceImpl) DeleteCreditCard(ctx context.Context, traceID string, id uuid.UUID) error {
	return s.delete(ctx, traceID, "Credit card", id, s.repo.DeleteCreditCard)
}

func (s *InstrumentServiceImpl) CreateEBT(ctx context.Context, traceID string, req apiviews.EBTRequest) (views.EBT, error) {
	now := s.now()
	issueYear, err := requireYear("issueYear", req.IssueYear, now)
	if err != nil {
		return views.EBT{}, err
	}
	ebt := models.EBT{
		ID:         uuid.New(),
		Number:     req.Number,
		Last4:      req.Last4,
		State:      req.State,
		IssueMonth: req.IssueMonth,
		IssueYear:  issueYear,
		CreatedAt:  now,
	}
	if err := rules.ValidateInstrumentConsistency(ebt, now); err != nil {
		return views.EBT{}, err
	}
	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.CreateEBT(ctx, tx, ebt)
	})
	if err != nil {
		return views.EBT{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	s.Logger.Info("ebt_card_created", zap.String(pkg.TraceId, traceID), zap.String("ebt_id", ebt.ID.String()))
	return ebt.ToView(), nil
}

func (s *InstrumentServiceImpl) GetEBT(ctx context.Context, traceID string, id uuid.UUID) (views.EBT, error) {
	ebt, err := s.repo.FindEBTByID(ctx, s.Reader, id)
	if err != nil {
		return views.EBT{}, handleLookupError(traceID, s.Logger, err, "EBT card", id)
	}
	return ebt.ToView(), nil
}

func (s *InstrumentServiceImpl) ListEBT(ctx context.Context, traceID string, page, size int) ([]views.EBT, error) {
	ebts, err := s.repo.FindAllEBT(ctx, s.Reader, page, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	out := make([]views.EBT, 0, len(ebts))
	for _, e := range ebts {
		out = append(out, e.ToView())
	}
	return out, nil
}

func (s *InstrumentServiceImpl) DeleteEBT(ctx context.Context, traceID string, id uuid.UUID) error {
	return s.delete(ctx, traceID, "EBT card", id, s.repo.DeleteEBT)
}

func (s *InstrumentServiceImpl) delete(ctx context.Context, traceID, kind string, id uuid.UUID,
	del func(context.Context, database.Querier, uuid.UUID) (bool, error)) error {
	var deleted bool
	err := s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		deleted, err = del(ctx, tx, id)
		return err
	})
	if err != nil {
		return pkg.HandleSQLError(traceID, s.Logger, err)
	}
	if !deleted {
		return handleLookupError(traceID, s.Logger, pgx.ErrNoRows, kind, id)
	}
	return nil
}
