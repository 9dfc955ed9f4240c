// Split-tender seeder with per-second outbound request throttling.
//   - Concurrency is controlled by a fixed worker pool (maxConcurrentOrders)
//   - Throughput is controlled by an RPS limiter (token bucket) shared by every API call
//   - Each order is built through the public API: instruments, order, card + EBT payments, capture
//
// Example:
//
//	go run ./services/capture-api/cmd/seed \
//	  -noOfOrders=2000 \
//	  -maxConcurrentOrders=50 \
//	  -rps=400 \
//	  -async=true \
//	  -captureApiUrl=http://localhost:8080
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// --------- CLI flags ---------
var (
	noOfOrders          = flag.Int("noOfOrders", 100, "Total number of orders to seed")
	maxConcurrentOrders = flag.Int("maxConcurrentOrders", 10, "Orders built in parallel (worker pool size)")
	minOrderTotal       = flag.Float64("minOrderTotal", 10.0, "Min order total")
	maxOrderTotal       = flag.Float64("maxOrderTotal", 200.0, "Max order total")
	ebtShare            = flag.Float64("ebtShare", 0.4, "Share of each order tendered through EBT (0..1)")
	mismatchEvery       = flag.Int("mismatchEvery", 0, "Underpay every Nth order to exercise total mismatch (0 disables)")
	async               = flag.Bool("async", false, "Queue captures through capture-requests instead of capturing inline")
	captureAPIURL       = flag.String("captureApiUrl", "http://localhost:8080", "Capture API base URL")
	rps                 = flag.Int("rps", 200, "Global requests-per-second limit for outbound API calls")
	rpsBurst            = flag.Int("rpsBurst", 0, "Burst size for the limiter (0 => equals rps)")
	httpClientTimeout   = flag.Duration("httpClientTimeout", 15*time.Second, "Total HTTP client timeout")
)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type created struct {
	ID string `json:"id"`
}

type captureResult struct {
	Order struct {
		Status pkg.OrderStatus `json:"status"`
	} `json:"order"`
}

type Seeder struct {
	apiURL     string
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
	workers    int
	ebtShare   decimal.Decimal

	// metrics
	built     int64
	succeeded int64
	failed    int64
	queued    int64
	errored   int64
}

func main() {
	flag.Parse()

	pkg.InitLogger("capture-seeder")
	logger := pkg.Logger
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *rps <= 0 {
		logger.Fatal("rps_must_be_positive")
	}
	if *ebtShare < 0 || *ebtShare > 1 {
		logger.Fatal("ebtShare_must_be_between_0_and_1")
	}
	burst := *rpsBurst
	if burst <= 0 {
		burst = *rps
	}

	seeder := &Seeder{
		apiURL:  *captureAPIURL,
		limiter: rate.NewLimiter(rate.Limit(*rps), burst),
		httpClient: utils.NewHTTPClient(
			utils.WithClientTimeout(*httpClientTimeout),
			utils.WithMaxConnsPerHost(*maxConcurrentOrders*2),
		),
		logger:   logger,
		workers:  *maxConcurrentOrders,
		ebtShare: decimal.NewFromFloat(*ebtShare),
	}

	start := time.Now()
	logger.Info("start_seeding",
		zap.Int("no_of_orders", *noOfOrders),
		zap.Int("workers", seeder.workers),
		zap.Int("rps", *rps),
		zap.Bool("async", *async))

	seeder.Run(ctx, *noOfOrders)

	logger.Info("seeding_completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int64("built", atomic.LoadInt64(&seeder.built)),
		zap.Int64("succeeded", atomic.LoadInt64(&seeder.succeeded)),
		zap.Int64("failed", atomic.LoadInt64(&seeder.failed)),
		zap.Int64("queued", atomic.LoadInt64(&seeder.queued)),
		zap.Int64("errored", atomic.LoadInt64(&seeder.errored)))
}

func (s *Seeder) Run(ctx context.Context, total int) {
	jobs := make(chan int, s.workers)

	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			for n := range jobs {
				if err := s.seedOrder(ctx, n); err != nil {
					atomic.AddInt64(&s.errored, 1)
					s.logger.Error("seed_order_failed", zap.Int("order_no", n), zap.Error(err))
				}
			}
		}()
	}

enqueue:
	for n := 1; n <= total; n++ {
		select {
		case <-ctx.Done():
			break enqueue
		case jobs <- n:
		}
	}
	close(jobs)
	wg.Wait()
}

// seedOrder builds one split-tender order and captures it.
func (s *Seeder) seedOrder(ctx context.Context, n int) error {
	card, err := s.post(ctx, "/api/v1/credit-cards", map[string]any{
		"number": "4111111111111111", "last4": "1111", "brand": pkg.CardBrandVisa, "expMonth": 12, "expYear": time.Now().Year() + 3,
	}, http.StatusCreated)
	if err != nil {
		return err
	}
	ebt, err := s.post(ctx, "/api/v1/ebt-cards", map[string]any{
		"number": "5077190000004321", "last4": "4321", "state": pkg.EBTStateDelhi, "issueMonth": 1, "issueYear": time.Now().Year() - 1,
	}, http.StatusCreated)
	if err != nil {
		return err
	}

	total := decimal.NewFromFloat(rand.Float64()*(*maxOrderTotal-*minOrderTotal) + *minOrderTotal).Round(2)
	ebtAmount := total.Mul(s.ebtShare).Round(2)
	cardAmount := total.Sub(ebtAmount)
	if *mismatchEvery > 0 && n%*mismatchEvery == 0 && cardAmount.IsPositive() {
		cardAmount = cardAmount.Sub(decimal.NewFromFloat(0.01))
	}

	order, err := s.post(ctx, "/api/v1/orders", map[string]any{"orderTotal": total, "ebtTotal": ebtAmount}, http.StatusCreated)
	if err != nil {
		return err
	}
	var ids created
	if err := json.Unmarshal(order, &ids); err != nil {
		return err
	}
	orderID := ids.ID

	payments := []map[string]any{
		{"orderId": orderID, "amount": cardAmount, "paymentMethod": pkg.PaymentMethodCreditCard, "creditCardId": idOf(card), "description": "card tender"},
		{"orderId": orderID, "amount": ebtAmount, "paymentMethod": pkg.PaymentMethodEBT, "ebtId": idOf(ebt), "description": "ebt tender"},
	}
	for _, p := range payments {
		if _, err := s.post(ctx, "/api/v1/payments", p, http.StatusCreated); err != nil {
			return err
		}
	}
	atomic.AddInt64(&s.built, 1)

	if *async {
		if _, err := s.post(ctx, "/api/v1/orders/"+orderID+"/capture-requests", nil, http.StatusAccepted); err != nil {
			return err
		}
		atomic.AddInt64(&s.queued, 1)
		return nil
	}

	data, err := s.post(ctx, "/api/v1/orders/"+orderID+"/capture", nil, http.StatusOK, http.StatusBadRequest)
	if err != nil {
		return err
	}
	var result captureResult
	_ = json.Unmarshal(data, &result)
	if result.Order.Status == pkg.OrderStatusSucceeded {
		atomic.AddInt64(&s.succeeded, 1)
	} else {
		atomic.AddInt64(&s.failed, 1)
	}
	s.logger.Info("order_seeded", zap.String(pkg.OrderId, orderID), zap.String("status", string(result.Order.Status)))
	return nil
}

// post sends a throttled JSON request and returns the data field of the response envelope.
func (s *Seeder) post(ctx context.Context, path string, body any, accept ...int) (json.RawMessage, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pkg.HeaderRequestId, uuid.NewString())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	for _, status := range accept {
		if resp.StatusCode != status {
			continue
		}
		if status >= http.StatusBadRequest {
			// failed outcome is committed; report it like a failed capture
			return nil, nil
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		return env.Data, nil
	}
	return nil, fmt.Errorf("POST %s: unexpected status %d: %s", path, resp.StatusCode, raw)
}

func idOf(data json.RawMessage) string {
	var c created
	_ = json.Unmarshal(data, &c)
	return c.ID
}
