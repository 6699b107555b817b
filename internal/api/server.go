package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"tpvrestaurante/internal/audit"
	"tpvrestaurante/internal/config"
	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
	"tpvrestaurante/internal/report"
)

// CatalogStore is the catalog surface the API edits. The POS service only reads items.
type CatalogStore interface {
	pos.Catalog
	SaveItem(ctx context.Context, it *pos.CatalogItem) error
	ListItems(ctx context.Context, kind pos.Kind, category string) ([]*pos.CatalogItem, error)
	DeleteItem(ctx context.Context, kind pos.Kind, id string) error
	Categories(ctx context.Context, kind pos.Kind) ([]string, error)
	CreateRating(ctx context.Context, r *pos.Rating) error
	ListRatings(ctx context.Context, itemID string) ([]*pos.Rating, error)
}

// AuditReader serves the audit mirror. Nil when the mirror is disabled.
type AuditReader interface {
	Recent(ctx context.Context, entityID string, limit int64) ([]*audit.Log, error)
}

type Deps struct {
	Service *pos.Service
	Catalog CatalogStore
	Reports *report.Registrar
	Hub     http.Handler
	Audit   AuditReader
	Ping    func(ctx context.Context) error
	Logger  *zap.Logger
	Clock   func() time.Time
}

type Server struct {
	cfg     config.Config
	svc     *pos.Service
	catalog CatalogStore
	reports *report.Registrar
	hub     http.Handler
	audit   AuditReader
	ping    func(ctx context.Context) error
	log     *zap.Logger
	now     func() time.Time
}

func NewServer(cfg config.Config, d Deps) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     d.Service,
		catalog: d.Catalog,
		reports: d.Reports,
		hub:     d.Hub,
		audit:   d.Audit,
		ping:    d.Ping,
		log:     d.Logger,
		now:     d.Clock,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.hub != nil {
			// Websocket connections outlive the request timeout.
			r.Handle("/ws", s.hub)
		}

		r.Group(func(r chi.Router) {
			if s.cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			}

			r.Get("/tables", s.handleTablesList)
			r.Post("/tables", s.handleTableCreate)
			r.Get("/tables/{number}", s.handleTableGet)
			r.With(s.requireAdmin).Delete("/tables/{number}", s.handleTableDelete)
			r.Post("/tables/{number}/open", s.handleTableOpen)
			r.Post("/tables/{number}/close", s.handleTableClose)
			r.Get("/tables/{number}/orders", s.handleTableOrders)
			r.Post("/tables/{number}/orders", s.handleOrderCreate)

			r.Get("/tables/{number}/cart", s.handleCartGet)
			r.Delete("/tables/{number}/cart", s.handleCartClear)
			r.Post("/tables/{number}/cart/lines", s.handleCartAddLine)
			r.Post("/tables/{number}/cart/lines/{lineId}/remove", s.handleCartRemoveLine)
			r.Post("/tables/{number}/cart/submit", s.handleCartSubmit)

			r.Get("/orders", s.handleOrdersList)
			r.Get("/orders/{id}", s.handleOrderGet)
			r.Delete("/orders/{id}", s.handleOrderDelete)
			r.Post("/orders/{id}/lines", s.handleOrderAddLine)
			r.Post("/orders/{id}/lines/{lineId}/remove", s.handleOrderRemoveLine)
			r.Patch("/orders/{id}/lines/{lineId}/status", s.handleLineStatus)
			r.Patch("/orders/{id}/status", s.handleOrderStatus)
			r.Post("/orders/{id}/cancel", s.handleOrderCancel)

			r.Get("/archives", s.handleArchivesList)
			r.Get("/archives/{id}", s.handleArchiveGet)
			r.Post("/archives/{id}/reopen", s.handleArchiveReopen)

			r.Get("/catalog/{kind}", s.handleCatalogList)
			r.Get("/catalog/{kind}/categories", s.handleCatalogCategories)
			r.Get("/catalog/{kind}/{id}", s.handleCatalogGet)
			r.With(s.requireAdmin).Put("/catalog/{kind}/{id}", s.handleCatalogPut)
			r.With(s.requireAdmin).Delete("/catalog/{kind}/{id}", s.handleCatalogDelete)
			r.Get("/catalog/{kind}/{id}/ratings", s.handleRatingsList)
			r.Post("/catalog/{kind}/{id}/ratings", s.handleRatingCreate)
			r.Post("/ratings", s.handleRatingsBatch)

			r.Get("/reports/summary", s.handleReportSummary)
			r.Get("/reports/sales", s.handleReportSales)
			r.Get("/reports/deletions", s.handleReportDeletions)
			r.With(s.requireAdmin).Post("/register/close", s.handleRegisterClose)
			r.Get("/register/closes", s.handleRegisterCloses)

			r.With(s.requireAdmin).Get("/audit/{entityId}", s.handleAuditList)
		})
	})

	return r
}

// cors answers preflight requests before routing so that every path accepts them.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			allowed := "*"
			if s.cfg.CORSAllowOrigins != "" {
				allowed = s.cfg.CORSAllowOrigins
			}
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Vary", "Origin")
		}
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Token")
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	// If ADMIN_TOKEN is not set, don't gate admin endpoints (dev convenience).
	if strings.TrimSpace(s.cfg.AdminToken) == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
		if token == "" {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}

		if token == "" || token != s.cfg.AdminToken {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// fail writes err and logs anything that is not a client error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !pos.IsValidation(err) && !pos.IsConflict(err) && !isNotFound(err) {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	httpx.WriteServiceError(w, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			httpx.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
}
