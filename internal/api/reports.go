package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

type registerCloseRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.reportRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sum, err := s.reports.Summary(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": sum,
	})
}

func (s *Server) handleReportSales(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.reportRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sales, err := s.reports.Sales(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if sales == nil {
		sales = []*pos.Sale{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"from":    from,
		"to":      to,
		"sales":   sales,
	})
}

func (s *Server) handleReportDeletions(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.reportRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	deletions, err := s.reports.Deletions(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if deletions == nil {
		deletions = []*pos.Deletion{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"from":      from,
		"to":        to,
		"deletions": deletions,
	})
}

// handleRegisterClose closes a finished business day. Closing an already closed day
// returns the stored totals with created=false.
func (s *Server) handleRegisterClose(w http.ResponseWriter, r *http.Request) {
	var req registerCloseRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = strings.TrimSpace(r.URL.Query().Get("date"))
	}
	if date == "" {
		s.fail(w, r, &pos.ValidationError{Reason: "date is required"})
		return
	}

	rc, created, err := s.reports.CloseDay(r.Context(), date)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, map[string]any{
		"success":  true,
		"created":  created,
		"register": rc,
	})
}

func (s *Server) handleRegisterCloses(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 30)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	closes, err := s.reports.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"registers": closes,
	})
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		httpx.WriteError(w, http.StatusNotFound, "audit log is not enabled")
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit == 0 || limit > 500 {
		limit = 500
	}
	logs, err := s.audit.Recent(r.Context(), chi.URLParam(r, "entityId"), int64(limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []*audit.Log{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": logs,
	})
}
