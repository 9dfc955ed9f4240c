//go:build integration

package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/settlement"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pgFixture struct {
	db          *database.DB
	orders      repositories.OrderRepository
	payments    repositories.PaymentRepository
	instruments repositories.InstrumentRepository
	proc        *scriptedProcessor
	publisher   *recordingPublisher
	engine      Engine
}

func newPgFixture(t *testing.T) *pgFixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	dsn := testutil.StartPostgres(t)

	require.NoError(t, database.RunMigrations(logger, dsn))
	db, closer, err := database.New(ctx, logger, database.Config{PrimaryDSN: dsn, MaxConns: 8, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(closer)

	f := &pgFixture{
		db:          db,
		orders:      repositories.NewOrderRepository(),
		payments:    repositories.NewPaymentRepository(),
		instruments: repositories.NewInstrumentRepository(),
		proc:        &scriptedProcessor{declines: map[uuid.UUID]string{}, calls: map[uuid.UUID]int{}},
		publisher:   &recordingPublisher{},
	}
	gateway := settlement.NewMethodRouter(settlement.NewCardGateway(f.proc, logger), settlement.NewEBTGateway(f.proc, logger))
	f.engine = NewEngine(EngineConfig{
		Logger:      logger,
		DB:          db,
		OrderRepo:   f.orders,
		PaymentRepo: f.payments,
		Gateway:     gateway,
		Publisher:   f.publisher,
		Concurrency: 4,
		Clock:       func() time.Time { return captureTime },
	})
	return f
}

// seed stores an order with one EBT and one card payment backed by real instruments.
func (f *pgFixture) seed(t *testing.T, total, ebtTotal, ebtAmount, cardAmount string) (models.Order, models.Payment, models.Payment) {
	t.Helper()
	ctx := context.Background()
	created := captureTime.Add(-time.Hour)

	card := models.CreditCard{ID: uuid.New(), Number: "4111111111111111", Last4: "1111", Brand: "visa", ExpMonth: 12, ExpYear: 2030, CreatedAt: created}
	ebt := models.EBT{ID: uuid.New(), Number: "5077190000001234", Last4: "1234", State: pkg.EBTStateAndraPradesh, IssueMonth: 1, IssueYear: 2024, CreatedAt: created}
	order := models.NewOrder(decimal.RequireFromString(total), decimal.RequireFromString(ebtTotal), created)

	newPayment := func(method pkg.PaymentMethod, amount string, offset time.Duration) models.Payment {
		p := models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Amount:        decimal.RequireFromString(amount),
			Description:   string(method),
			PaymentMethod: method,
			Status:        pkg.PaymentStatusRequiresConfirmation,
			CreatedAt:     created.Add(offset),
			UpdatedAt:     created.Add(offset),
		}
		if method == pkg.PaymentMethodEBT {
			p.EbtID = &ebt.ID
		} else {
			p.CreditCardID = &card.ID
		}
		return p
	}
	ebtPayment := newPayment(pkg.PaymentMethodEBT, ebtAmount, time.Millisecond)
	cardPayment := newPayment(pkg.PaymentMethodCreditCard, cardAmount, 2*time.Millisecond)

	err := f.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := f.instruments.CreateCreditCard(ctx, tx, card); err != nil {
			return err
		}
		if err := f.instruments.CreateEBT(ctx, tx, ebt); err != nil {
			return err
		}
		if err := f.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		if err := f.payments.Create(ctx, tx, ebtPayment); err != nil {
			return err
		}
		return f.payments.Create(ctx, tx, cardPayment)
	})
	require.NoError(t, err)
	return order, ebtPayment, cardPayment
}

func (f *pgFixture) reload(t *testing.T, orderID uuid.UUID) (models.Order, []models.Payment) {
	t.Helper()
	ctx := context.Background()
	order, err := f.orders.FindByID(ctx, f.db, orderID)
	require.NoError(t, err)
	payments, err := f.payments.FindByOrderID(ctx, f.db, orderID)
	require.NoError(t, err)
	return order, payments
}

func TestPostgresCapture(t *testing.T) {
	f := newPgFixture(t)
	ctx := context.Background()

	t.Run("split tender succeeds and persists", func(t *testing.T) {
		order, _, _ := f.seed(t, "80.00", "30.00", "30.00", "50.00")

		res, err := f.engine.CaptureOrder(ctx, "pg-ok", order.ID)
		require.NoError(t, err)
		assert.Equal(t, pkg.OrderStatusSucceeded, res.Order.Status)

		stored, payments := f.reload(t, order.ID)
		assert.Equal(t, pkg.OrderStatusSucceeded, stored.Status)
		require.NotNil(t, stored.SuccessDate)
		assert.True(t, captureTime.Equal(*stored.SuccessDate))
		require.Len(t, payments, 2)
		for _, p := range payments {
			assert.Equal(t, pkg.PaymentStatusSucceeded, p.Status)
			assert.Nil(t, p.LastProcessingError)
			assert.Equal(t, 1, f.proc.calls[p.ID])
		}

		_, err = f.engine.CaptureOrder(ctx, "pg-again", order.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, pkg.ErrAlreadyCaptured)
	})

	t.Run("card decline keeps settled ebt and fails the order", func(t *testing.T) {
		order, ebtPayment, cardPayment := f.seed(t, "40.00", "10.00", "10.00", "30.00")
		f.proc.mu.Lock()
		f.proc.declines[cardPayment.ID] = "card declined"
		f.proc.mu.Unlock()

		res, err := f.engine.CaptureOrder(ctx, "pg-decline", order.ID)
		require.NoError(t, err)
		assert.Equal(t, pkg.OrderStatusFailed, res.Order.Status)
		assert.Equal(t, []string{"card declined"}, res.Errors)

		stored, payments := f.reload(t, order.ID)
		assert.Equal(t, pkg.OrderStatusFailed, stored.Status)
		assert.Nil(t, stored.SuccessDate)
		byID := map[uuid.UUID]models.Payment{}
		for _, p := range payments {
			byID[p.ID] = p
		}
		assert.Equal(t, pkg.PaymentStatusSucceeded, byID[ebtPayment.ID].Status)
		assert.Equal(t, pkg.PaymentStatusFailed, byID[cardPayment.ID].Status)
		require.NotNil(t, byID[cardPayment.ID].LastProcessingError)
		assert.Equal(t, "card declined", *byID[cardPayment.ID].LastProcessingError)
	})

	t.Run("mismatch persists failure before returning", func(t *testing.T) {
		order, _, _ := f.seed(t, "60.00", "20.00", "20.00", "30.00")

		_, err := f.engine.CaptureOrder(ctx, "pg-mismatch", order.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, pkg.ErrTotalMismatch)
		assert.Contains(t, err.Error(), order.ID.String())

		stored, payments := f.reload(t, order.ID)
		assert.Equal(t, pkg.OrderStatusFailed, stored.Status)
		for _, p := range payments {
			assert.Equal(t, pkg.PaymentStatusFailed, p.Status)
			require.NotNil(t, p.LastProcessingError)
			assert.Contains(t, *p.LastProcessingError, order.ID.String())
			assert.Zero(t, f.proc.calls[p.ID])
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.engine.CaptureOrder(ctx, "pg-missing", uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, pkg.ErrOrderNotFound)
	})

	t.Run("concurrent captures settle once", func(t *testing.T) {
		order, ebtPayment, cardPayment := f.seed(t, "25.00", "5.00", "5.00", "20.00")

		const attempts = 6
		var (
			wg         sync.WaitGroup
			mu         sync.Mutex
			succeeded  int
			duplicates int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.engine.CaptureOrder(ctx, "pg-race", order.ID)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, pkg.ErrAlreadyCaptured):
					duplicates++
				default:
					t.Errorf("unexpected capture error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, attempts-1, duplicates)
		f.proc.mu.Lock()
		defer f.proc.mu.Unlock()
		assert.Equal(t, 1, f.proc.calls[ebtPayment.ID])
		assert.Equal(t, 1, f.proc.calls[cardPayment.ID])
	})
}
