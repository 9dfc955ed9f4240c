package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/rules"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ServiceConfig holds the dependencies shared by the capture-api services.
type ServiceConfig struct {
	Logger *zap.Logger
	// Reader serves plain reads; it routes to replicas when configured.
	Reader database.Querier
	// DB runs every write, and every read that must see the order row lock.
	DB    database.TxRunner
	Clock func() time.Time
}

func (c ServiceConfig) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

// handleLookupError reports a missing record by kind and id, and maps everything else through HandleSQLError.
func handleLookupError(traceID string, logger *zap.Logger, err error, kind string, id fmt.Stringer) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return pkg.NewAppError(pkg.ErrRecordNotFoundCode, fmt.Sprintf("%s with id %s not found", kind, id), err)
	}
	return pkg.HandleSQLError(traceID, logger, err)
}

func requiredField(field string) error {
	return pkg.NewAppError(pkg.ErrInvalidInputCode, field+" is required", nil)
}

// requireAmount accepts present, non-negative amounts with at most two fractional digits.
func requireAmount(field string, amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, requiredField(field)
	}
	if amount.IsNegative() {
		return decimal.Zero, pkg.NewAppError(pkg.ErrInvalidInputCode, field+" cannot be negative", nil)
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, pkg.NewAppError(pkg.ErrInvalidInputCode, field+" cannot have more than 2 decimal places", nil)
	}
	return *amount, nil
}

// requireYear expands a present 2- or 4-digit year to its 4-digit form.
func requireYear(field string, year *int, now time.Time) (int, error) {
	if year == nil {
		return 0, requiredField(field)
	}
	return rules.ExpandTwoDigitYear(*year, now)
}
