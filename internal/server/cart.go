package server

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/wire"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	st := h.store.State()
	h.mu.Unlock()
	h.respondCart(w, st)
}

func (h *Handler) cancelCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.store.Clear()
	st := h.store.State()
	h.mu.Unlock()
	h.respondCart(w, st)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	var (
		kind catalog.Kind
		id   int64
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			s, serr := d.Str()
			kind, err = catalog.Kind(s), serr
		case "id":
			id, err = d.Int64()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil || !kind.Valid() || id <= 0 {
		writeError(w, http.StatusBadRequest, "body must carry a valid kind and id")
		return
	}

	item, ok := h.catalog.Find(kind, id)
	if !ok {
		writeError(w, http.StatusNotFound, "item not in the current catalog; refresh and retry")
		return
	}

	h.mu.Lock()
	addErr := h.store.AddLine(item)
	st := h.store.State()
	h.mu.Unlock()

	if addErr != nil {
		writeError(w, cartStatus(addErr), addErr.Error())
		return
	}
	h.respondCart(w, st)
}

func (h *Handler) setQuantity(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := pathLine(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line reference")
		return
	}

	quantity := -1
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		if key == "quantity" {
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "body must carry a quantity")
		return
	}

	h.mu.Lock()
	setErr := h.store.SetQuantity(kind, id, quantity)
	st := h.store.State()
	h.mu.Unlock()

	if setErr != nil {
		writeError(w, cartStatus(setErr), setErr.Error())
		return
	}
	h.respondCart(w, st)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := pathLine(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line reference")
		return
	}

	h.mu.Lock()
	h.store.RemoveLine(kind, id)
	st := h.store.State()
	h.mu.Unlock()
	h.respondCart(w, st)
}

func (h *Handler) updateSession(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "payment_method":
			s, err := d.Str()
			if err != nil {
				return err
			}
			return h.store.SetPaymentMethod(cart.PaymentMethod(s))
		case "amount_paid":
			v, err := wire.DecodeDecimal(d)
			if err != nil {
				return err
			}
			return h.store.SetAmountPaid(v)
		case "discount":
			v, err := wire.DecodeDecimal(d)
			if err != nil {
				return err
			}
			return h.store.SetDiscount(v)
		case "apply_tax":
			b, err := d.Bool()
			if err != nil {
				return err
			}
			h.store.SetApplyTax(b)
			return nil
		case "notes":
			s, err := d.Str()
			if err != nil {
				return err
			}
			h.store.SetNotes(s)
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondCart(w, h.store.State())
}

// respondCart renders the full cart view with live totals.
func (h *Handler) respondCart(w http.ResponseWriter, st cart.State) {
	totals := h.calc.Totals(st)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()

		e.FieldStart("lines")
		e.ArrStart()
		for _, line := range st.Lines {
			e.ObjStart()
			e.FieldStart("kind")
			e.Str(string(line.Kind))
			e.FieldStart("reference_id")
			e.Int64(line.ReferenceID)
			e.FieldStart("name")
			e.Str(line.Name)
			e.FieldStart("unit_price")
			money(e, line.UnitPrice)
			e.FieldStart("quantity")
			e.Int(line.Quantity)
			if line.Kind == catalog.KindProduct {
				e.FieldStart("available_stock")
				e.Int(line.AvailableStock)
			}
			e.FieldStart("line_total")
			money(e, line.Total())
			e.ObjEnd()
		}
		e.ArrEnd()

		e.FieldStart("session")
		e.ObjStart()
		e.FieldStart("payment_method")
		e.Str(string(st.PaymentMethod))
		e.FieldStart("amount_paid")
		money(e, st.AmountPaid)
		e.FieldStart("discount")
		money(e, st.Discount)
		e.FieldStart("apply_tax")
		e.Bool(st.ApplyTax)
		e.FieldStart("notes")
		e.Str(st.Notes)
		e.ObjEnd()

		e.FieldStart("totals")
		e.ObjStart()
		e.FieldStart("subtotal")
		money(e, totals.Subtotal)
		e.FieldStart("tax")
		money(e, totals.Tax)
		e.FieldStart("discount")
		money(e, totals.Discount)
		e.FieldStart("total")
		money(e, totals.Total)
		e.FieldStart("change")
		money(e, totals.Change)
		e.ObjEnd()

		e.ObjEnd()
	})
}
