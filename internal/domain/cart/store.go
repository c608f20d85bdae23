package cart

import (
	"github.com/shopspring/decimal"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

// Store owns a cart State and is its only sanctioned mutation surface.
// Every rejected mutation is a strict no-op: the state after a failed call is
// identical to the state before it.
//
// Store is not safe for concurrent use. The original cart lived on a
// single-threaded UI event loop; callers that share a Store across goroutines
// (the terminal HTTP handler) serialize access themselves.
type Store struct {
	state State
}

// NewStore returns a Store holding the empty initial state: no lines, cash
// payment, zero amounts, tax enabled.
func NewStore() *Store {
	s := &Store{}
	s.state = initialState()
	return s
}

func initialState() State {
	return State{
		PaymentMethod: PaymentCash,
		AmountPaid:    decimal.Zero,
		Discount:      decimal.Zero,
		ApplyTax:      true,
	}
}

// State returns a copy of the current cart state. Mutating the returned value
// does not affect the store.
func (s *Store) State() State {
	st := s.state
	st.Lines = make([]Line, len(s.state.Lines))
	copy(st.Lines, s.state.Lines)
	return st
}

// AddLine adds the catalog item to the cart. If a matching product line
// exists its quantity is incremented by one, bounded by the snapshotted
// stock. A lab test may appear at most once; adding it again is rejected as
// a duplicate.
func (s *Store) AddLine(item catalog.Item) error {
	if i := s.find(item.Kind, item.ID); i >= 0 {
		line := &s.state.Lines[i]
		if line.Kind == catalog.KindLabTest {
			return &DuplicateLabTestError{ReferenceID: line.ReferenceID, Name: line.Name}
		}
		if line.Quantity+1 > line.AvailableStock {
			return &InsufficientStockError{
				ReferenceID: line.ReferenceID,
				Name:        line.Name,
				Available:   line.AvailableStock,
				Requested:   line.Quantity + 1,
			}
		}
		line.Quantity++
		return nil
	}

	if item.Kind == catalog.KindProduct && item.Stock < 1 {
		return &InsufficientStockError{
			ReferenceID: item.ID,
			Name:        item.Name,
			Available:   item.Stock,
			Requested:   1,
		}
	}

	line := Line{
		Kind:        item.Kind,
		ReferenceID: item.ID,
		Name:        item.Name,
		UnitPrice:   item.UnitPrice,
		Quantity:    1,
	}
	if item.Kind == catalog.KindProduct {
		line.AvailableStock = item.Stock
	}
	s.state.Lines = append(s.state.Lines, line)
	return nil
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Product quantities are bounded by the snapshotted
// stock; lab test lines accept no value other than 1.
func (s *Store) SetQuantity(kind catalog.Kind, referenceID int64, quantity int) error {
	i := s.find(kind, referenceID)
	if i < 0 {
		return nil
	}

	if quantity <= 0 {
		s.RemoveLine(kind, referenceID)
		return nil
	}

	line := &s.state.Lines[i]
	if line.Kind == catalog.KindLabTest {
		if quantity != 1 {
			return &LabTestQuantityError{ReferenceID: referenceID, Requested: quantity}
		}
		return nil
	}
	if quantity > line.AvailableStock {
		return &InsufficientStockError{
			ReferenceID: line.ReferenceID,
			Name:        line.Name,
			Available:   line.AvailableStock,
			Requested:   quantity,
		}
	}
	line.Quantity = quantity
	return nil
}

// RemoveLine removes the matching line. Removing an absent line is a no-op.
func (s *Store) RemoveLine(kind catalog.Kind, referenceID int64) {
	for i, line := range s.state.Lines {
		if line.Kind == kind && line.ReferenceID == referenceID {
			s.state.Lines = append(s.state.Lines[:i], s.state.Lines[i+1:]...)
			return
		}
	}
}

// Clear resets the cart to its empty initial state. Used after a successful
// checkout and on explicit cancel.
func (s *Store) Clear() {
	s.state = initialState()
}

// SetPaymentMethod sets the tender type for the session.
func (s *Store) SetPaymentMethod(m PaymentMethod) error {
	if !m.Valid() {
		return ErrUnknownPaymentMethod
	}
	s.state.PaymentMethod = m
	return nil
}

// SetAmountPaid records the amount tendered by the customer.
func (s *Store) SetAmountPaid(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	s.state.AmountPaid = amount
	return nil
}

// SetDiscount records the flat discount entered by the cashier.
func (s *Store) SetDiscount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	s.state.Discount = amount
	return nil
}

// SetApplyTax toggles VAT for the session.
func (s *Store) SetApplyTax(apply bool) {
	s.state.ApplyTax = apply
}

// SetNotes attaches free-text notes to the session.
func (s *Store) SetNotes(notes string) {
	s.state.Notes = notes
}

func (s *Store) find(kind catalog.Kind, referenceID int64) int {
	for i, line := range s.state.Lines {
		if line.Kind == kind && line.ReferenceID == referenceID {
			return i
		}
	}
	return -1
}
