package api

import (
	"encoding/json"
	"net/http"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

type createTableRequest struct {
	Number int `json:"number"`
}

type closeTableRequest struct {
	Cash json.RawMessage `json:"cash"`
	Card json.RawMessage `json:"card"`
}

func (req closeTableRequest) payment() (pos.Payment, error) {
	cash, err := amountParam("cash", req.Cash)
	if err != nil {
		return pos.Payment{}, err
	}
	card, err := amountParam("card", req.Card)
	if err != nil {
		return pos.Payment{}, err
	}
	return pos.Payment{Cash: cash, Card: card}, nil
}

func (s *Server) handleTablesList(w http.ResponseWriter, r *http.Request) {
	tables, err := s.svc.ListTables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tables":  tables,
	})
}

func (s *Server) handleTableCreate(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.CreateTable(r.Context(), req.Number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"table":   t,
	})
}

func (s *Server) handleTableGet(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.GetTable(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   t,
	})
}

func (s *Server) handleTableDelete(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteTable(r.Context(), number); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleTableOpen(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.OpenTable(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   t,
	})
}

func (s *Server) handleTableClose(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req closeTableRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := req.payment()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	archive, err := s.svc.CloseTable(r.Context(), number, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"archive": archive,
	})
}

func (s *Server) handleTableOrders(w http.ResponseWriter, r *http.Request) {
	number, err := tableNumberParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	orders, err := s.svc.TableOrders(r.Context(), number)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if orders == nil {
		orders = []*pos.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  orders,
	})
}
