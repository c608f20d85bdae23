package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

func productItem(id int64, name string, price string, stock int) catalog.Item {
	return catalog.Item{
		ID:        id,
		Kind:      catalog.KindProduct,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Stock:     stock,
		Active:    true,
	}
}

func labItem(id int64, name string, cost string) catalog.Item {
	return catalog.Item{
		ID:        id,
		Kind:      catalog.KindLabTest,
		Name:      name,
		UnitPrice: decimal.RequireFromString(cost),
		Active:    true,
	}
}

func TestAddLine_NewProduct(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.AddLine(productItem(1, "Paracetamol 500mg", "2.50", 500)))

	st := s.State()
	require.Len(t, st.Lines, 1)
	assert.Equal(t, catalog.KindProduct, st.Lines[0].Kind)
	assert.Equal(t, int64(1), st.Lines[0].ReferenceID)
	assert.Equal(t, 1, st.Lines[0].Quantity)
	assert.Equal(t, 500, st.Lines[0].AvailableStock)
	assert.True(t, decimal.RequireFromString("2.50").Equal(st.Lines[0].UnitPrice))
}

func TestAddLine_IncrementsExistingProduct(t *testing.T) {
	s := NewStore()
	item := productItem(1, "Paracetamol 500mg", "2.50", 5)

	require.NoError(t, s.AddLine(item))
	require.NoError(t, s.AddLine(item))

	st := s.State()
	require.Len(t, st.Lines, 1)
	assert.Equal(t, 2, st.Lines[0].Quantity)
}

func TestAddLine_RejectsBeyondStock(t *testing.T) {
	s := NewStore()
	item := productItem(1, "Omeprazole 20mg", "4.50", 2)
	require.NoError(t, s.AddLine(item))
	require.NoError(t, s.AddLine(item))

	before := s.State()
	err := s.AddLine(item)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(1), stockErr.ReferenceID)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, before, s.State())
}

func TestAddLine_RejectsOutOfStockProduct(t *testing.T) {
	s := NewStore()

	err := s.AddLine(productItem(9, "Amoxicillin 250mg", "5.00", 0))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Empty(t, s.State().Lines)
}

func TestAddLine_DuplicateLabTestRejected(t *testing.T) {
	s := NewStore()
	item := labItem(7, "Full Blood Count", "5000")
	require.NoError(t, s.AddLine(item))

	before := s.State()
	err := s.AddLine(item)

	var dupErr *DuplicateLabTestError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, int64(7), dupErr.ReferenceID)
	assert.Equal(t, before, s.State())
}

func TestAddLine_SameIDDifferentKindsCoexist(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.AddLine(productItem(3, "Cetirizine 10mg", "2.25", 10)))
	require.NoError(t, s.AddLine(labItem(3, "Malaria Test", "3000")))

	require.Len(t, s.State().Lines, 2)
}

func TestSetQuantity_WithinStock(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Ibuprofen 400mg", "3.75", 10)))

	require.NoError(t, s.SetQuantity(catalog.KindProduct, 1, 7))

	assert.Equal(t, 7, s.State().Lines[0].Quantity)
}

func TestSetQuantity_RejectsBeyondStock(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Ibuprofen 400mg", "3.75", 5)))
	require.NoError(t, s.SetQuantity(catalog.KindProduct, 1, 2))

	before := s.State()
	err := s.SetQuantity(catalog.KindProduct, 1, 10)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)
	// The prior quantity survives untouched.
	assert.Equal(t, before, s.State())
	assert.Equal(t, 2, s.State().Lines[0].Quantity)
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Metformin 500mg", "3.25", 95)))

	require.NoError(t, s.SetQuantity(catalog.KindProduct, 1, 0))

	assert.Empty(t, s.State().Lines)
}

func TestSetQuantity_LabTestPinnedAtOne(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(labItem(7, "Full Blood Count", "5000")))

	require.NoError(t, s.SetQuantity(catalog.KindLabTest, 7, 1))

	before := s.State()
	err := s.SetQuantity(catalog.KindLabTest, 7, 2)

	var qtyErr *LabTestQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, 2, qtyErr.Requested)
	assert.Equal(t, before, s.State())
	assert.Equal(t, 1, s.State().Lines[0].Quantity)
}

func TestSetQuantity_MissingLineIsNoop(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.SetQuantity(catalog.KindProduct, 42, 3))

	assert.Empty(t, s.State().Lines)
}

func TestRemoveLine_Idempotent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Paracetamol 500mg", "2.50", 500)))

	s.RemoveLine(catalog.KindProduct, 1)
	s.RemoveLine(catalog.KindProduct, 1)

	assert.Empty(t, s.State().Lines)
}

func TestClear_ResetsToInitialState(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Paracetamol 500mg", "2.50", 500)))
	require.NoError(t, s.SetPaymentMethod(PaymentCard))
	require.NoError(t, s.SetAmountPaid(decimal.RequireFromString("100")))
	require.NoError(t, s.SetDiscount(decimal.RequireFromString("5")))
	s.SetApplyTax(false)
	s.SetNotes("end of day")

	s.Clear()

	st := s.State()
	assert.Empty(t, st.Lines)
	assert.Equal(t, PaymentCash, st.PaymentMethod)
	assert.True(t, decimal.Zero.Equal(st.AmountPaid))
	assert.True(t, decimal.Zero.Equal(st.Discount))
	assert.True(t, st.ApplyTax)
	assert.Empty(t, st.Notes)
}

func TestSessionSetters_Validation(t *testing.T) {
	s := NewStore()

	require.ErrorIs(t, s.SetPaymentMethod("bitcoin"), ErrUnknownPaymentMethod)
	require.ErrorIs(t, s.SetAmountPaid(decimal.RequireFromString("-1")), ErrNegativeAmount)
	require.ErrorIs(t, s.SetDiscount(decimal.RequireFromString("-0.01")), ErrNegativeAmount)

	require.NoError(t, s.SetPaymentMethod(PaymentInsurance))
	assert.Equal(t, PaymentInsurance, s.State().PaymentMethod)
}

func TestState_ReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.AddLine(productItem(1, "Paracetamol 500mg", "2.50", 500)))

	st := s.State()
	st.Lines[0].Quantity = 99

	assert.Equal(t, 1, s.State().Lines[0].Quantity)
}

func TestStockBound_UnderMutationSequences(t *testing.T) {
	// Whatever sequence of adds and quantity updates runs, a product line
	// never exceeds its snapshotted stock.
	s := NewStore()
	item := productItem(1, "Amoxicillin 250mg", "5.00", 3)

	for range 10 {
		_ = s.AddLine(item)
	}
	_ = s.SetQuantity(catalog.KindProduct, 1, 50)
	_ = s.AddLine(item)

	st := s.State()
	require.Len(t, st.Lines, 1)
	assert.LessOrEqual(t, st.Lines[0].Quantity, 3)
	assert.Equal(t, 3, st.Lines[0].Quantity)
}
