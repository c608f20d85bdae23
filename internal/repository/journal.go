package repository

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viorhealth/pos-terminal/internal/domain/journal"
)

const insertJournalSQL = `INSERT INTO sales_journal
	(id, sale_id, invoice_number, payment_method,
	 subtotal, tax, discount, total, amount_paid, change_due,
	 lines, lab_test_failures, notes, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

var _ journal.Recorder = (*JournalRepository)(nil)

// JournalRepository implements journal.Recorder backed by PostgreSQL.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository returns a JournalRepository using the given pool.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Record appends one completed checkout. The line snapshot is serialized to
// JSON for the JSONB column.
func (r *JournalRepository) Record(ctx context.Context, e *journal.Entry) error {
	linesJSON, err := json.Marshal(e.Lines)
	if err != nil {
		return errors.Wrap(err, "marshal journal lines")
	}

	_, err = r.pool.Exec(ctx, insertJournalSQL,
		e.ID, e.SaleID, e.InvoiceNumber, e.PaymentMethod,
		e.Subtotal, e.Tax, e.Discount, e.Total, e.AmountPaid, e.Change,
		linesJSON, e.LabTestFailures, e.Notes, e.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "record journal entry %q", e.InvoiceNumber)
	}
	return nil
}
