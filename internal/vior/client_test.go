package vior

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viorhealth/pos-terminal/internal/checkout"
	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Token: "secret-token"})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{BaseURL: "ftp://backend.local/api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestCreateSale(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sales/sales/create_sale/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &gotBody))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42, "invoice_number": "INV-2026-0042", "created_at": "2026-08-28"}`))
	}))

	sale, err := c.CreateSale(context.Background(), checkout.SaleRequest{
		Lines: []checkout.SaleLine{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("1000")},
		},
		PaymentMethod: cart.PaymentCash,
		AmountPaid:    decimal.RequireFromString("10000"),
		Discount:      decimal.Zero,
		Tax:           decimal.RequireFromString("1260"),
		Notes:         "walk-in",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), sale.ID)
	assert.Equal(t, "INV-2026-0042", sale.InvoiceNumber)
	assert.Equal(t, "Bearer secret-token", gotAuth)

	assert.Equal(t, "cash", gotBody["payment_method"])
	assert.Equal(t, "walk-in", gotBody["notes"])
	assert.EqualValues(t, 10000, gotBody["amount_paid"])
	assert.EqualValues(t, 1260, gotBody["tax"])

	items, ok := gotBody["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.EqualValues(t, 1, line["product"])
	assert.EqualValues(t, 2, line["quantity"])
	assert.EqualValues(t, 1000, line["unit_price"])
}

func TestCreateSale_MissingIDRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))

	_, err := c.CreateSale(context.Background(), checkout.SaleRequest{PaymentMethod: cart.PaymentCash})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestCreateSale_BackendErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error": "Insufficient stock for Paracetamol 500mg"}`, want: "Insufficient stock for Paracetamol 500mg"},
		{name: "message field", body: `{"message": "Validation failed"}`, want: "Validation failed"},
		{name: "error preferred over message", body: `{"message": "generic", "error": "specific"}`, want: "specific"},
		{name: "opaque body", body: `<html>Bad Gateway</html>`, want: "request failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))

			_, err := c.CreateSale(context.Background(), checkout.SaleRequest{PaymentMethod: cart.PaymentCash})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestCreateSale_NeverRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.CreateSale(context.Background(), checkout.SaleRequest{PaymentMethod: cart.PaymentCash})

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_RetriesOnceOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	err := c.get(context.Background(), "/inventory/products/", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Invalid token"}`))
	}))

	err := c.get(context.Background(), "/inventory/products/", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCatalog(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inventory/products/":
			// DRF paginated shape with a price serialized as a string.
			_, _ = w.Write([]byte(`{
				"count": 2,
				"next": null,
				"results": [
					{"id": 1, "name": "Paracetamol 500mg", "unit_price": "2.50", "quantity": 500, "is_active": true},
					{"id": 2, "name": "Discontinued", "unit_price": "9.00", "quantity": 3, "is_active": false}
				]
			}`))
		case "/laboratory/test-types/":
			// Bare array shape, price under "cost", no is_active field.
			_, _ = w.Write([]byte(`[{"id": 7, "name": "Full Blood Count", "cost": 5000}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	items, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 3)

	byID := map[int64]catalog.Item{}
	for _, it := range items {
		byID[it.ID] = it
	}

	para := byID[1]
	assert.Equal(t, catalog.KindProduct, para.Kind)
	assert.Equal(t, "Paracetamol 500mg", para.Name)
	assert.Equal(t, 500, para.Stock)
	assert.True(t, para.Active)
	assert.True(t, decimal.RequireFromString("2.50").Equal(para.UnitPrice))

	assert.False(t, byID[2].Active)

	fbc := byID[7]
	assert.Equal(t, catalog.KindLabTest, fbc.Kind)
	assert.True(t, fbc.Active, "missing is_active defaults to active")
	assert.True(t, decimal.RequireFromString("5000").Equal(fbc.UnitPrice))
}

func TestFetchCatalog_ProductWithoutID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/inventory/products/" {
			_, _ = w.Write([]byte(`[{"name": "nameless", "unit_price": "1.00"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.FetchCatalog(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch products")
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	// Any HTTP response means the backend is reachable.
	require.NoError(t, c.Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	require.Error(t, c.Ping(context.Background()))
}

func TestCreateLabTest(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/laboratory/tests/", r.URL.Path)

		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &gotBody))

		w.WriteHeader(http.StatusCreated)
	}))

	err := c.CreateLabTest(context.Background(), checkout.LabTestRequest{
		TestTypeID:    7,
		TestName:      "Full Blood Count",
		Cost:          decimal.RequireFromString("5000"),
		Paid:          true,
		PaymentMethod: cart.PaymentCash,
		SaleID:        42,
		PatientName:   checkout.WalkInPatient,
		Description:   "Sold at POS terminal, invoice INV-2026-0042",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 7, gotBody["test_type"])
	assert.Equal(t, "Full Blood Count", gotBody["test_name"])
	assert.EqualValues(t, 5000, gotBody["cost"])
	assert.Equal(t, true, gotBody["paid"])
	assert.Equal(t, "cash", gotBody["payment_method"])
	assert.EqualValues(t, 42, gotBody["sale"])
	assert.Equal(t, checkout.WalkInPatient, gotBody["patient_name"])
}

func TestDo_WrapsTransportErrors(t *testing.T) {
	c, err := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	err = c.do(context.Background(), http.MethodGet, "/inventory/products/", nil, nil)

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport errors are not APIErrors")
}
