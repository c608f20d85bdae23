// Package checkout submits a cart as a sale against the pharmacy backend.
//
// A checkout attempt moves through validating, submitting the sale, then
// best-effort lab test creation:
//
//	Idle -> Validating -> SubmittingSale -> {Failed | SubmittingTests -> Completed}
//
// The sale call is all-or-nothing: if it fails, nothing was committed and the
// cart is left intact for retry. Lab test creation after a committed sale is
// best-effort per line; a failed line never rolls back the sale or the other
// lab tests, it only becomes a warning on the outcome. There is no
// cancellation once the sale submission has started.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

// WalkInPatient is the patient name attached to lab tests sold over the
// counter without a registered patient record.
const WalkInPatient = "Walk-in Customer"

// ErrEmptyCart rejects a checkout attempt on an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// InsufficientPaymentError rejects a checkout where the amount tendered does
// not cover the total. Shortfall is the missing amount, for display.
type InsufficientPaymentError struct {
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("payment amount is insufficient: %s short of %s",
		e.Shortfall.StringFixed(2), e.Total.StringFixed(2))
}

// SaleLine is one product line of the sale payload. Lab tests are not
// products and never appear here.
type SaleLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// SaleRequest is the composed create-sale payload.
type SaleRequest struct {
	Lines         []SaleLine
	PaymentMethod cart.PaymentMethod
	AmountPaid    decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Notes         string
}

// Sale is the backend's record of a committed sale.
type Sale struct {
	ID            int64
	InvoiceNumber string
}

// LabTestRequest is the payload for one follow-up lab test creation.
type LabTestRequest struct {
	TestTypeID    int64
	TestName      string
	Cost          decimal.Decimal
	Paid          bool
	PaymentMethod cart.PaymentMethod
	SaleID        int64
	PatientName   string
	Description   string
}

// SalesAPI creates sales on the pharmacy backend.
type SalesAPI interface {
	CreateSale(ctx context.Context, req SaleRequest) (*Sale, error)
}

// LaboratoryAPI creates lab test records on the pharmacy backend.
type LaboratoryAPI interface {
	CreateLabTest(ctx context.Context, req LabTestRequest) error
}

// CatalogRefresher re-reads the catalog after a committed sale so the
// terminal sees the new stock levels.
type CatalogRefresher interface {
	Refresh(ctx context.Context) error
}

// LabTestResult is the per-line outcome of lab test creation. Err is nil on
// success.
type LabTestResult struct {
	Line cart.Line
	Err  error
}

// Outcome is the result of a completed checkout attempt. The checkout is
// successful as a whole whenever the sale was committed, regardless of lab
// test failures.
type Outcome struct {
	Sale     *Sale
	Totals   Totals
	LabTests []LabTestResult
}

// Totals is the monetary summary the checkout was settled with.
type Totals struct {
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
	Change     decimal.Decimal
}

// FailedLabTests returns the results whose creation failed.
func (o *Outcome) FailedLabTests() []LabTestResult {
	var failed []LabTestResult
	for _, r := range o.LabTests {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Warnings renders the per-line lab test failures as user-facing messages.
func (o *Outcome) Warnings() []string {
	var warnings []string
	for _, r := range o.LabTests {
		if r.Err != nil {
			warnings = append(warnings, fmt.Sprintf("lab test %q was not created: %v", r.Line.Name, r.Err))
		}
	}
	return warnings
}

// composeSale builds the create-sale payload from the product lines of the
// given state. Per-line discounts are not used at the terminal; the flat
// session discount is carried at the top level.
func composeSale(st cart.State, t Totals) SaleRequest {
	req := SaleRequest{
		PaymentMethod: st.PaymentMethod,
		AmountPaid:    st.AmountPaid,
		Discount:      st.Discount,
		Tax:           t.Tax,
		Notes:         st.Notes,
	}
	for _, line := range st.Lines {
		if line.Kind != catalog.KindProduct {
			continue
		}
		req.Lines = append(req.Lines, SaleLine{
			ProductID: line.ReferenceID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return req
}

// labRequest builds the follow-up lab test payload for one cart line.
func labRequest(line cart.Line, method cart.PaymentMethod, sale *Sale) LabTestRequest {
	return LabTestRequest{
		TestTypeID:    line.ReferenceID,
		TestName:      line.Name,
		Cost:          line.UnitPrice,
		Paid:          true,
		PaymentMethod: method,
		SaleID:        sale.ID,
		PatientName:   WalkInPatient,
		Description:   fmt.Sprintf("Sold at POS terminal, invoice %s", sale.InvoiceNumber),
	}
}
