package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/domain/journal"
	"github.com/viorhealth/pos-terminal/internal/domain/pricing"
)

// Orchestrator validates, submits, and reconciles checkout attempts for a
// single cart.
type Orchestrator struct {
	store     *cart.Store
	calc      pricing.Calculator
	sales     SalesAPI
	labs      LaboratoryAPI
	refresher CatalogRefresher
	journal   journal.Recorder // optional, nil disables journaling
}

// New constructs an Orchestrator. The journal recorder may be nil.
func New(
	store *cart.Store,
	calc pricing.Calculator,
	sales SalesAPI,
	labs LaboratoryAPI,
	refresher CatalogRefresher,
	jr journal.Recorder,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		calc:      calc,
		sales:     sales,
		labs:      labs,
		refresher: refresher,
		journal:   jr,
	}
}

// Checkout runs one checkout attempt to completion.
//
// On any validation failure or a failed sale submission the cart is left
// byte-for-byte unchanged so the cashier can correct and retry. Once the sale
// is committed the checkout is successful as a whole: lab test lines are
// created one at a time, each failure is recorded on the outcome without
// rolling anything back, the cart is cleared, and the catalog is asked to
// refresh.
func (o *Orchestrator) Checkout(ctx context.Context) (*Outcome, error) {
	st := o.store.State()

	// Validating.
	if len(st.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	derived := o.calc.Totals(st)
	if st.AmountPaid.LessThan(derived.Total) {
		return nil, &InsufficientPaymentError{
			Total:     derived.Total,
			Paid:      st.AmountPaid,
			Shortfall: derived.Total.Sub(st.AmountPaid),
		}
	}
	totals := Totals{
		Subtotal:   derived.Subtotal,
		Tax:        derived.Tax,
		Discount:   derived.Discount,
		Total:      derived.Total,
		AmountPaid: st.AmountPaid,
		Change:     derived.Change,
	}

	// SubmittingSale. A failure here aborts the whole attempt.
	sale, err := o.sales.CreateSale(ctx, composeSale(st, totals))
	if err != nil {
		return nil, errors.Wrap(err, "create sale")
	}

	outcome := &Outcome{Sale: sale, Totals: totals}

	// SubmittingTests. Sequential and best-effort: the sale is already
	// committed, so per-line failures only become warnings.
	for _, line := range st.Lines {
		if line.Kind != catalog.KindLabTest {
			continue
		}
		err := o.labs.CreateLabTest(ctx, labRequest(line, st.PaymentMethod, sale))
		if err != nil {
			zctx.From(ctx).Warn("Lab test creation failed after committed sale",
				zap.String("invoice", sale.InvoiceNumber),
				zap.String("test", line.Name),
				zap.Error(err),
			)
		}
		outcome.LabTests = append(outcome.LabTests, LabTestResult{Line: line, Err: err})
	}

	o.record(ctx, st, outcome)

	// Finalize: reset the cart and pull fresh stock numbers.
	o.store.Clear()
	if err := o.refresher.Refresh(ctx); err != nil {
		zctx.From(ctx).Warn("Catalog refresh after checkout failed", zap.Error(err))
	}

	return outcome, nil
}

// record writes the journal entry for a committed sale. Journal failures are
// logged and dropped: the backend already owns the sale.
func (o *Orchestrator) record(ctx context.Context, st cart.State, out *Outcome) {
	if o.journal == nil {
		return
	}

	lines := make([]journal.EntryLine, len(st.Lines))
	for i, line := range st.Lines {
		lines[i] = journal.EntryLine{
			Kind:        string(line.Kind),
			ReferenceID: line.ReferenceID,
			Name:        line.Name,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
		}
	}

	entry := &journal.Entry{
		ID:              uuid.New(),
		SaleID:          out.Sale.ID,
		InvoiceNumber:   out.Sale.InvoiceNumber,
		PaymentMethod:   string(st.PaymentMethod),
		Subtotal:        out.Totals.Subtotal,
		Tax:             out.Totals.Tax,
		Discount:        out.Totals.Discount,
		Total:           out.Totals.Total,
		AmountPaid:      out.Totals.AmountPaid,
		Change:          out.Totals.Change,
		Lines:           lines,
		LabTestFailures: len(out.FailedLabTests()),
		Notes:           st.Notes,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.journal.Record(ctx, entry); err != nil {
		zctx.From(ctx).Warn("Journal write failed",
			zap.String("invoice", entry.InvoiceNumber),
			zap.Error(err),
		)
	}
}
