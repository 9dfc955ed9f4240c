// Package rules holds the pure checks run before a payment is recorded and before an order is captured.
package rules

import (
	"fmt"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/shopspring/decimal"
)

// twoDigitYearWindow is the distance from the current year that a 2-digit year may resolve to.
const twoDigitYearWindow = 50

// ValidateInstrumentConsistency checks that the stored last four digits match the full number and,
// for credit cards, that the card has not expired before the current month.
func ValidateInstrumentConsistency(instrument models.Instrument, now time.Time) error {
	number := instrument.CardNumber()
	last4 := instrument.RecordedLast4()
	if len(number) < 4 || number[len(number)-4:] != last4 {
		return pkg.NewAppError(pkg.ErrInvalidInstrumentCode,
			"Last 4 digits of the card number does not match the last_4 field", pkg.ErrInvalidInstrument)
	}

	switch inst := instrument.(type) {
	case models.CreditCard:
		return validateExpiry(inst.ExpMonth, inst.ExpYear, now)
	case *models.CreditCard:
		return validateExpiry(inst.ExpMonth, inst.ExpYear, now)
	case models.EBT:
		return validateMonth(inst.IssueMonth)
	case *models.EBT:
		return validateMonth(inst.IssueMonth)
	}
	return nil
}

func validateMonth(month int) error {
	if month < 1 || month > 12 {
		return pkg.NewAppError(pkg.ErrInvalidInstrumentCode,
			fmt.Sprintf("month %d must be between 1 and 12", month), pkg.ErrInvalidInstrument)
	}
	return nil
}

// validateExpiry compares on 4-digit years. A card expiring in the current month is still valid.
func validateExpiry(month, year int, now time.Time) error {
	if err := validateMonth(month); err != nil {
		return err
	}
	current := now.Year()*12 + int(now.Month())
	if year*12+month < current {
		return pkg.NewAppError(pkg.ErrInvalidInstrumentCode,
			"Credit card expiry date is in the past", pkg.ErrInvalidInstrument)
	}
	return nil
}

// ExpandTwoDigitYear resolves a 2-digit year to the 4-digit year closest to now, within a 50 year window.
// A 4-digit year is returned unchanged.
func ExpandTwoDigitYear(year int, now time.Time) (int, error) {
	if year >= 1000 && year <= 9999 {
		return year, nil
	}
	if year < 0 || year > 99 {
		return 0, pkg.NewAppError(pkg.ErrInvalidInstrumentCode,
			fmt.Sprintf("year %d must be between 0 and 99", year), pkg.ErrInvalidInstrument)
	}
	current := now.Year()
	expanded := current/100*100 + year
	switch {
	case expanded > current+twoDigitYearWindow:
		expanded -= 100
	case expanded <= current-twoDigitYearWindow:
		expanded += 100
	}
	return expanded, nil
}

// ValidatePaymentAssociation checks the instrument reference of a new payment against its method and
// that the order's running total stays within order_total once the payment is added.
func ValidatePaymentAssociation(payment models.Payment, order models.Order, existing []models.Payment) error {
	if payment.CreditCardID != nil && payment.EbtID != nil {
		return invalidPayment("Payment can only be associated with one of credit card or EBT")
	}
	if payment.CreditCardID == nil && payment.EbtID == nil {
		return invalidPayment("Payment must be associated with a credit card or an EBT card")
	}
	switch payment.PaymentMethod {
	case pkg.PaymentMethodCreditCard:
		if payment.CreditCardID == nil {
			return invalidPayment("Payment method credit_card requires a credit card")
		}
	case pkg.PaymentMethodEBT:
		if payment.EbtID == nil {
			return invalidPayment("Payment method ebt requires an EBT card")
		}
	default:
		return invalidPayment(fmt.Sprintf("unknown payment method %q", payment.PaymentMethod))
	}
	if payment.Amount.IsNegative() {
		return invalidPayment("Payment amount cannot be negative")
	}
	if payment.OrderID != order.ID {
		return invalidPayment(fmt.Sprintf("Payment does not belong to Order with id %s", order.ID))
	}

	total := SumAmounts(existing).Add(payment.Amount)
	if total.GreaterThan(order.OrderTotal) {
		return pkg.NewAppError(pkg.ErrPaymentExceedsOrderCode,
			fmt.Sprintf("Payment total %s exceeds order total %s for Order with id %s",
				total.StringFixed(2), order.OrderTotal.StringFixed(2), order.ID),
			pkg.ErrPaymentExceedsOrder)
	}
	return nil
}

func invalidPayment(msg string) error {
	return pkg.NewAppError(pkg.ErrInvalidPaymentCode, msg, pkg.ErrInvalidPayment)
}

// ValidateCaptureTotals requires payments to sum exactly to order_total and EBT payments to stay within
// ebt_total. The total check runs first; the EBT check is only evaluated when totals match.
func ValidateCaptureTotals(order models.Order, payments []models.Payment) error {
	if !SumAmounts(payments).Equal(order.OrderTotal) {
		return pkg.NewAppError(pkg.ErrTotalMismatchCode,
			fmt.Sprintf("Payment total does not match order total for Order with id %s", order.ID),
			pkg.ErrTotalMismatch)
	}
	if SumByMethod(payments, pkg.PaymentMethodEBT).GreaterThan(order.EbtTotal) {
		return pkg.NewAppError(pkg.ErrEbtLimitExceededCode,
			fmt.Sprintf("EBT total exceeded order ebt total for Order with id %s", order.ID),
			pkg.ErrEbtLimitExceeded)
	}
	return nil
}

// SumAmounts adds the amount of every payment.
func SumAmounts(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// SumByMethod adds the amount of payments made with method.
func SumByMethod(payments []models.Payment, method pkg.PaymentMethod) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if p.PaymentMethod == method {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}
