// Package journal defines the terminal's local audit trail of completed
// checkouts. The backend remains the system of record for sales; the journal
// only supports end-of-day reconciliation at the counter.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one completed checkout.
type Entry struct {
	ID              uuid.UUID
	SaleID          int64
	InvoiceNumber   string
	PaymentMethod   string
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	AmountPaid      decimal.Decimal
	Change          decimal.Decimal
	Lines           []EntryLine
	LabTestFailures int
	Notes           string
	CreatedAt       time.Time
}

// EntryLine is the snapshot of one cart line at checkout time.
type EntryLine struct {
	Kind        string          `json:"kind"`
	ReferenceID int64           `json:"reference_id"`
	Name        string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Recorder persists journal entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}
