package server

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/viorhealth/pos-terminal/internal/domain/catalog"
)

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	h.respondCatalog(w)
}

func (h *Handler) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.respondCatalog(w)
}

func (h *Handler) respondCatalog(w http.ResponseWriter) {
	items := h.catalog.Items()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range items {
			e.ObjStart()
			e.FieldStart("kind")
			e.Str(string(it.Kind))
			e.FieldStart("id")
			e.Int64(it.ID)
			e.FieldStart("name")
			e.Str(it.Name)
			e.FieldStart("unit_price")
			money(e, it.UnitPrice)
			if it.Kind == catalog.KindProduct {
				e.FieldStart("stock")
				e.Int(it.Stock)
			}
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	})
}
