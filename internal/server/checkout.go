package server

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/checkout"
)

func (h *Handler) doCheckout(w http.ResponseWriter, r *http.Request) {
	// The lock is held for the whole submission: the cart must not mutate
	// mid-flight, and the original UI disables the cart behind the checkout
	// dialog anyway.
	h.mu.Lock()
	outcome, err := h.checkout.Checkout(r.Context())
	h.mu.Unlock()

	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	failed := len(outcome.FailedLabTests())
	message := "Sale completed successfully"
	if failed > 0 {
		message = fmt.Sprintf("Sale completed successfully, but %d lab test(s) could not be created", failed)
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str(message)

		e.FieldStart("sale")
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(outcome.Sale.ID)
		e.FieldStart("invoice_number")
		e.Str(outcome.Sale.InvoiceNumber)
		e.ObjEnd()

		e.FieldStart("totals")
		e.ObjStart()
		e.FieldStart("subtotal")
		money(e, outcome.Totals.Subtotal)
		e.FieldStart("tax")
		money(e, outcome.Totals.Tax)
		e.FieldStart("discount")
		money(e, outcome.Totals.Discount)
		e.FieldStart("total")
		money(e, outcome.Totals.Total)
		e.FieldStart("amount_paid")
		money(e, outcome.Totals.AmountPaid)
		e.FieldStart("change")
		money(e, outcome.Totals.Change)
		e.ObjEnd()

		e.FieldStart("warnings")
		e.ArrStart()
		for _, warning := range outcome.Warnings() {
			e.Str(warning)
		}
		e.ArrEnd()

		e.ObjEnd()
	})
}

func (h *Handler) respondCheckoutError(w http.ResponseWriter, err error) {
	if errors.Is(err, checkout.ErrEmptyCart) {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	var insufficient *checkout.InsufficientPaymentError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusPaymentRequired, func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("error")
			e.Str(insufficient.Error())
			e.FieldStart("shortfall")
			money(e, insufficient.Shortfall)
			e.ObjEnd()
		})
		return
	}

	// Remote sale submission failure: the cart is intact, surface the
	// backend's message for retry.
	writeError(w, http.StatusBadGateway, err.Error())
}
