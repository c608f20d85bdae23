package cart

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

// PaymentMethod enumerates the tender types the backend accepts.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentMobile    PaymentMethod = "mobile"
	PaymentInsurance PaymentMethod = "insurance"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile, PaymentInsurance:
		return true
	}
	return false
}

// Line is one purchasable unit in the active sale. UnitPrice and
// AvailableStock are snapshots taken when the line was added; they are not
// re-read from the catalog during the cart's lifetime.
type Line struct {
	Kind        catalog.Kind
	ReferenceID int64
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int
	// AvailableStock bounds Quantity for product lines. Zero for lab tests,
	// whose quantity is pinned at 1.
	AvailableStock int
}

// Total returns UnitPrice * Quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// State is the full cart: ordered lines plus the checkout-session scalars.
// It lives only for the duration of a sale and is never persisted.
type State struct {
	Lines         []Line
	PaymentMethod PaymentMethod
	AmountPaid    decimal.Decimal
	Discount      decimal.Decimal
	ApplyTax      bool
	Notes         string
}

// Sentinel errors for cart mutations.
var (
	// ErrUnknownPaymentMethod rejects payment methods outside the enum.
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	// ErrNegativeAmount rejects negative paid/discount amounts.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// InsufficientStockError rejects a mutation that would push a product line
// past its snapshotted stock.
type InsufficientStockError struct {
	ReferenceID int64
	Name        string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d requested, %d available", e.Name, e.Requested, e.Available)
}

// DuplicateLabTestError rejects adding a lab test that is already in the cart.
type DuplicateLabTestError struct {
	ReferenceID int64
	Name        string
}

func (e *DuplicateLabTestError) Error() string {
	return fmt.Sprintf("lab test %s is already in the cart", e.Name)
}

// LabTestQuantityError rejects any lab test quantity other than 1.
type LabTestQuantityError struct {
	ReferenceID int64
	Requested   int
}

func (e *LabTestQuantityError) Error() string {
	return fmt.Sprintf("lab tests are single-quantity, got %d", e.Requested)
}
