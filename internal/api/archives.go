package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

func (s *Server) handleArchivesList(w http.ResponseWriter, r *http.Request) {
	table, err := queryInt(r, "table", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f := pos.ArchiveFilter{TableNumber: table}
	q := r.URL.Query()
	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		if *dst, err = parseInstant(key, v); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	archives, err := s.svc.ListArchives(r.Context(), f, queryBool(r, "latest"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"archives": archives,
	})
}

func (s *Server) handleArchiveGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.GetArchive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"archive": a,
	})
}

func (s *Server) handleArchiveReopen(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ReopenTable(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   res.Table,
		"orders":  res.Orders,
		"skipped": res.Skipped,
	})
}
