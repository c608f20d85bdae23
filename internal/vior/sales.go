package vior

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/checkout"
	"github.com/viorhealth/pos-terminal/internal/wire"
)

const createSalePath = "/sales/sales/create_sale/"

var _ checkout.SalesAPI = (*Client)(nil)

// CreateSale submits the composed sale payload. The call is not retried:
// there is no idempotency key, so a retry could double-submit the sale.
func (c *Client) CreateSale(ctx context.Context, req checkout.SaleRequest) (*checkout.Sale, error) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, line := range req.Lines {
		e.ObjStart()
		e.FieldStart("product")
		e.Int64(line.ProductID)
		e.FieldStart("quantity")
		e.Int(line.Quantity)
		e.FieldStart("unit_price")
		wire.EncodeDecimal(&e, line.UnitPrice)
		e.FieldStart("discount")
		e.Int(0)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("payment_method")
	e.Str(string(req.PaymentMethod))
	e.FieldStart("amount_paid")
	wire.EncodeDecimal(&e, req.AmountPaid)
	e.FieldStart("discount")
	wire.EncodeDecimal(&e, req.Discount)
	e.FieldStart("tax")
	wire.EncodeDecimal(&e, req.Tax)
	e.FieldStart("notes")
	e.Str(req.Notes)
	e.ObjEnd()

	var sale checkout.Sale
	err := c.do(ctx, http.MethodPost, createSalePath, e.Bytes(), func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "id":
				sale.ID, err = d.Int64()
			case "invoice_number":
				sale.InvoiceNumber, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, errors.New("malformed create-sale response: missing id")
	}
	return &sale, nil
}
