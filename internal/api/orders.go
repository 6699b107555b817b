package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

type statusRequest struct {
	Status  string `json:"status"`
	StaffID string `json:"staffId"`
}

type cancelRequest struct {
	StaffID string `json:"staffId"`
	Reason  string `json:"reason"`
}

func writeChange(w http.ResponseWriter, status int, change *pos.OrderChange) {
	body := map[string]any{
		"success": true,
		"order":   change.Order,
	}
	if change.Table != nil {
		body["table"] = change.Table
	}
	httpx.WriteJSON(w, status, body)
}

func (s *Server) handleOrderCreate(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in pos.OrderInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.svc.CreateOrder(r.Context(), number, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeChange(w, http.StatusCreated, change)
}

func (s *Server) handleOrdersList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := pos.OrderFilter{
		Kind:   pos.Kind(strings.ToLower(strings.TrimSpace(q.Get("kind")))),
		Status: pos.OrderStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		s.fail(w, r, &pos.ValidationError{Reason: "unknown order kind " + string(f.Kind)})
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		s.fail(w, r, &pos.ValidationError{Reason: "unknown order status " + string(f.Status)})
		return
	}
	table, err := queryInt(r, "table", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	archived, err := queryInt(r, "archivedTable", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f.ArchivedTableNumber = archived

	orders, err := s.svc.ListOrders(r.Context(), f, table)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  orders,
	})
}

func (s *Server) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   o,
	})
}

func (s *Server) handleOrderDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleOrderAddLine(w http.ResponseWriter, r *http.Request) {
	var in pos.LineInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.svc.AddLine(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeChange(w, http.StatusOK, change)
}

func (s *Server) handleOrderRemoveLine(w http.ResponseWriter, r *http.Request) {
	var in pos.RemoveInput
	if err := httpx.ReadJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeChange(w, http.StatusOK, change)
}

func (s *Server) handleLineStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	status := pos.LineStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	o, err := s.svc.SetLineStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "lineId"), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   o,
	})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	status := pos.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	change, err := s.svc.SetOrderStatus(r.Context(), chi.URLParam(r, "id"), status, req.StaffID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeChange(w, http.StatusOK, change)
}

func (s *Server) handleOrderCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.svc.CancelOrder(r.Context(), chi.URLParam(r, "id"), req.StaffID, req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeChange(w, http.StatusOK, change)
}
