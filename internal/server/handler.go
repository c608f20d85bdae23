// Package server exposes the terminal API the desktop UI drives: the
// catalog, the single active cart, and checkout. One terminal owns one cart;
// a mutex serializes every cart access so the domain store keeps the
// single-threaded semantics it was written for.
package server

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/checkout"
	"github.com/viorhealth/pos-terminal/internal/domain/cart"
	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
	"github.com/viorhealth/pos-terminal/internal/domain/pricing"
)

// Handler serves the terminal API.
type Handler struct {
	mu       sync.Mutex
	store    *cart.Store
	calc     pricing.Calculator
	catalog  *catalog.Cache
	checkout *checkout.Orchestrator
}

// New constructs a Handler around the single terminal cart.
func New(store *cart.Store, calc pricing.Calculator, cache *catalog.Cache, orch *checkout.Orchestrator) *Handler {
	return &Handler{
		store:    store,
		calc:     calc,
		catalog:  cache,
		checkout: orch,
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog", h.getCatalog)
	mux.HandleFunc("POST /api/catalog/refresh", h.refreshCatalog)
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.cancelCart)
	mux.HandleFunc("POST /api/cart/lines", h.addLine)
	mux.HandleFunc("PUT /api/cart/lines/{kind}/{id}", h.setQuantity)
	mux.HandleFunc("DELETE /api/cart/lines/{kind}/{id}", h.removeLine)
	mux.HandleFunc("PUT /api/cart/session", h.updateSession)
	mux.HandleFunc("POST /api/checkout", h.doCheckout)
	return mux
}

// pathLine extracts the {kind}/{id} pair from the request path.
func pathLine(r *http.Request) (catalog.Kind, int64, bool) {
	kind := catalog.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		return "", 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return kind, id, true
}

// decodeBody runs fn over the request body as a JSON object.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(r.Body, 1024)
	return d.Obj(fn)
}

// cartStatus maps a rejected cart mutation to an HTTP status.
func cartStatus(err error) int {
	switch err.(type) {
	case *cart.InsufficientStockError, *cart.DuplicateLabTestError, *cart.LabTestQuantityError:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
