package vior

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/checkout"
	"github.com/viorhealth/pos-terminal/internal/wire"
)

const labTestsPath = "/laboratory/tests/"

var _ checkout.LaboratoryAPI = (*Client)(nil)

// CreateLabTest creates one lab test record tied to a committed sale.
// Like CreateSale, the call is never retried.
func (c *Client) CreateLabTest(ctx context.Context, req checkout.LabTestRequest) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("test_type")
	e.Int64(req.TestTypeID)
	e.FieldStart("test_name")
	e.Str(req.TestName)
	e.FieldStart("cost")
	wire.EncodeDecimal(&e, req.Cost)
	e.FieldStart("paid")
	e.Bool(req.Paid)
	e.FieldStart("payment_method")
	e.Str(string(req.PaymentMethod))
	e.FieldStart("sale")
	e.Int64(req.SaleID)
	e.FieldStart("patient_name")
	e.Str(req.PatientName)
	e.FieldStart("description")
	e.Str(req.Description)
	e.ObjEnd()

	return c.do(ctx, http.MethodPost, labTestsPath, e.Bytes(), nil)
}
