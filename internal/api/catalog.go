package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/money"
	"tpvrestaurante/internal/pos"
)

// catalogItemRequest takes prices as numbers or strings such as "9,50".
type catalogItemRequest struct {
	pos.CatalogItem
	Prices map[pos.Tier]json.RawMessage `json:"prices"`
}

func (s *Server) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	items, err := s.catalog.ListItems(r.Context(), kind, category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !queryBool(r, "all") {
		active := items[:0]
		for _, it := range items {
			if it.Active {
				active = append(active, it)
			}
		}
		items = active
	}
	if items == nil {
		items = []*pos.CatalogItem{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   items,
	})
}

func (s *Server) handleCatalogCategories(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cats, err := s.catalog.Categories(r.Context(), kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"categories": cats,
	})
}

func (s *Server) handleCatalogGet(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	it, err := s.catalog.GetItem(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"item":    it,
	})
}

// handleCatalogPut creates or replaces an item. Lines already on orders keep the price
// they were created with.
func (s *Server) handleCatalogPut(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	var req catalogItemRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	it := req.CatalogItem
	it.ID = id
	it.Kind = kind
	it.Name = strings.TrimSpace(it.Name)
	it.Category = strings.TrimSpace(it.Category)
	it.Prices = make(map[pos.Tier]decimal.Decimal, len(req.Prices))
	for tier, raw := range req.Prices {
		price, err := amountParam("price "+string(tier), raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		it.Prices[tier] = money.Round2(price)
	}
	if err := it.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	now := s.now()
	it.CreatedAt = now
	it.UpdatedAt = now
	status := http.StatusCreated
	existing, err := s.catalog.GetItem(r.Context(), kind, id)
	switch {
	case err == nil:
		it.CreatedAt = existing.CreatedAt
		status = http.StatusOK
	case !errors.Is(err, pos.ErrNotFound):
		s.fail(w, r, err)
		return
	}

	if err := s.catalog.SaveItem(r.Context(), &it); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, status, map[string]any{
		"success": true,
		"item":    &it,
	})
}

func (s *Server) handleCatalogDelete(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.DeleteItem(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
