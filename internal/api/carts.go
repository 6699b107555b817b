package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

type cartLineRequest struct {
	Kind pos.Kind `json:"kind"`
	pos.LineInput
}

func (s *Server) handleCartGet(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.GetCart(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
	})
}

func (s *Server) handleCartAddLine(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req cartLineRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	kind := pos.Kind(strings.ToLower(strings.TrimSpace(string(req.Kind))))
	c, err := s.svc.AddCartLine(r.Context(), number, kind, req.LineInput)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
	})
}

func (s *Server) handleCartRemoveLine(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.RemoveCartLine(r.Context(), number, chi.URLParam(r, "lineId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
	})
}

func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.ClearCart(r.Context(), number); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCartSubmit(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	orders, err := s.svc.SubmitCart(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"orders":  orders,
	})
}
