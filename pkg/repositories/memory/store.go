// Package memory keeps orders, payments and instruments in process memory. It implements the
// repository interfaces and database.TxRunner so the capture flow can run without PostgreSQL.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
)

var (
	_ repositories.OrderRepository      = (*Store)(nil)
	_ repositories.PaymentRepository    = (*PaymentStore)(nil)
	_ repositories.InstrumentRepository = (*Store)(nil)
	_ database.TxRunner                 = (*Store)(nil)
)

// Store holds all records. Transactions run one at a time and roll back on error.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	orders   map[uuid.UUID]models.Order
	payments map[uuid.UUID]models.Payment
	cards    map[uuid.UUID]models.CreditCard
	ebts     map[uuid.UUID]models.EBT

	writes int
}

func NewStore() *Store {
	return &Store{
		orders:   make(map[uuid.UUID]models.Order),
		payments: make(map[uuid.UUID]models.Payment),
		cards:    make(map[uuid.UUID]models.CreditCard),
		ebts:     make(map[uuid.UUID]models.EBT),
	}
}

// Payments exposes the payment repository of the store. It shares state with s.
func (s *Store) Payments() *PaymentStore { return &PaymentStore{s: s} }

// Writes counts committed and uncommitted write calls, for asserting that nothing was touched.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// WithTransaction passes a nil pgx.Tx to fn; the repositories of this package ignore it.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(ctx, nil)
}

type state struct {
	orders   map[uuid.UUID]models.Order
	payments map[uuid.UUID]models.Payment
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state{
		orders:   make(map[uuid.UUID]models.Order, len(s.orders)),
		payments: make(map[uuid.UUID]models.Payment, len(s.payments)),
	}
	for k, v := range s.orders {
		st.orders[k] = v
	}
	for k, v := range s.payments {
		st.payments[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = st.orders
	s.payments = st.payments
}

func page[T any](items []T, pageNumber, size int) []T {
	start := (pageNumber - 1) * size
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Orders

func (s *Store) Create(_ context.Context, _ database.Querier, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.orders[order.ID] = order
	return nil
}

func (s *Store) FindByID(_ context.Context, _ database.Querier, orderID uuid.UUID) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, pgx.ErrNoRows
	}
	return order, nil
}

func (s *Store) FindByIDForUpdate(ctx context.Context, _ pgx.Tx, orderID uuid.UUID) (models.Order, error) {
	return s.FindByID(ctx, nil, orderID)
}

func (s *Store) FindAll(_ context.Context, _ database.Querier, pageNumber int, size int) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.String() < orders[j].ID.String()
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return page(orders, pageNumber, size), nil
}

func (s *Store) UpdateStatus(_ context.Context, _ database.Querier, order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	stored, ok := s.orders[order.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = order.Status
	stored.SuccessDate = order.SuccessDate
	stored.UpdatedAt = order.UpdatedAt
	s.orders[order.ID] = stored
	return nil
}

func (s *Store) Delete(_ context.Context, _ database.Querier, orderID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if _, ok := s.orders[orderID]; !ok {
		return false, nil
	}
	delete(s.orders, orderID)
	for id, p := range s.payments {
		if p.OrderID == orderID {
			delete(s.payments, id)
		}
	}
	return true, nil
}

// Instruments

func (s *Store) CreateCreditCard(_ context.Context, _ database.Querier, card models.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.cards[card.ID] = card
	return nil
}

func (s *Store) FindCreditCardByID(_ context.Context, _ database.Querier, cardID uuid.UUID) (models.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return models.CreditCard{}, pgx.ErrNoRows
	}
	return card, nil
}

func (s *Store) FindAllCreditCards(_ context.Context, _ database.Querier, pageNumber int, size int) ([]models.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := make([]models.CreditCard, 0, len(s.cards))
	for _, c := range s.cards {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].CreatedAt.Before(cards[j].CreatedAt) })
	return page(cards, pageNumber, size), nil
}

func (s *Store) DeleteCreditCard(_ context.Context, _ database.Querier, cardID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	_, ok := s.cards[cardID]
	delete(s.cards, cardID)
	return ok, nil
}

func (s *Store) CreateEBT(_ context.Context, _ database.Querier, ebt models.EBT) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.ebts[ebt.ID] = ebt
	return nil
}

func (s *Store) FindEBTByID(_ context.Context, _ database.Querier, ebtID uuid.UUID) (models.EBT, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ebt, ok := s.ebts[ebtID]
	if !ok {
		return models.EBT{}, pgx.ErrNoRows
	}
	return ebt, nil
}

func (s *Store) FindAllEBT(_ context.Context, _ database.Querier, pageNumber int, size int) ([]models.EBT, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ebts := make([]models.EBT, 0, len(s.ebts))
	for _, e := range s.ebts {
		ebts = append(ebts, e)
	}
	sort.Slice(ebts, func(i, j int) bool { return ebts[i].CreatedAt.Before(ebts[j].CreatedAt) })
	return page(ebts, pageNumber, size), nil
}

func (s *Store) DeleteEBT(_ context.Context, _ database.Querier, ebtID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	_, ok := s.ebts[ebtID]
	delete(s.ebts, ebtID)
	return ok, nil
}

// PaymentStore is the payment repository view of a Store. Method names overlap with the order
// repository, so it is a separate type over the same state.
type PaymentStore struct {
	s *Store
}

func (p *PaymentStore) Create(_ context.Context, _ database.Querier, payment models.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.writes++
	p.s.payments[payment.ID] = payment
	return nil
}

func (p *PaymentStore) FindByID(_ context.Context, _ database.Querier, paymentID uuid.UUID) (models.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payment, ok := p.s.payments[paymentID]
	if !ok {
		return models.Payment{}, pgx.ErrNoRows
	}
	return payment, nil
}

func (p *PaymentStore) FindByOrderID(_ context.Context, _ database.Querier, orderID uuid.UUID) ([]models.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payments := make([]models.Payment, 0)
	for _, pm := range p.s.payments {
		if pm.OrderID == orderID {
			payments = append(payments, pm)
		}
	}
	sortPayments(payments)
	return payments, nil
}

func (p *PaymentStore) FindAll(_ context.Context, _ database.Querier, pageNumber int, size int) ([]models.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payments := make([]models.Payment, 0, len(p.s.payments))
	for _, pm := range p.s.payments {
		payments = append(payments, pm)
	}
	sortPayments(payments)
	return page(payments, pageNumber, size), nil
}

func (p *PaymentStore) UpdateOutcome(_ context.Context, _ database.Querier, payment models.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.writes++
	stored, ok := p.s.payments[payment.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = payment.Status
	stored.SuccessDate = payment.SuccessDate
	stored.LastProcessingError = payment.LastProcessingError
	stored.UpdatedAt = payment.UpdatedAt
	p.s.payments[payment.ID] = stored
	return nil
}

func (p *PaymentStore) Delete(_ context.Context, _ database.Querier, paymentID uuid.UUID) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.writes++
	_, ok := p.s.payments[paymentID]
	delete(p.s.payments, paymentID)
	return ok, nil
}

func sortPayments(payments []models.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].ID.String() < payments[j].ID.String()
		}
		return payments[i].CreatedAt.Before(payments[j].CreatedAt)
	})
}
