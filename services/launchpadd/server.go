package launchpadd

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"launchpad/core"
	"launchpad/indexer"
	"launchpad/observability/logging"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Node      *core.Node
	Index     *indexer.Store
	Auth      *Authenticator
	RateLimit RateLimit
	Logger    *slog.Logger
}

// Server exposes the launchpad ledger over HTTP.
type Server struct {
	node    *core.Node
	index   *indexer.Store
	auth    *Authenticator
	limiter *RateLimiter
	logger  *slog.Logger

	router http.Handler
}

func New(cfg Config) (*Server, error) {
	if cfg.Node == nil {
		return nil, errors.New("launchpadd: node required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("launchpadd: authenticator required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		node:    cfg.Node,
		index:   cfg.Index,
		auth:    cfg.Auth,
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(s.auth.Middleware)

		api.Get("/projects/{id}", s.handleGetProject)
		api.Get("/projects/{id}/sales", s.handleProjectSales)
		api.Get("/projects/{id}/pack", s.handlePack)
		api.Get("/projects/{id}/close-progress", s.handleCloseProgress)
		api.Get("/sales/{id}", s.handleGetSale)
		api.Get("/sales/{id}/price", s.handleSalePrice)
		api.Get("/sales/{id}/bills/{buyer}", s.handleBill)
		api.Get("/accounts/{addr}/balance", s.handleBalance)
		api.Get("/config/project", s.handleProjectConfig)
		api.Get("/fees/create", s.handleCreateFee)
		api.Get("/events", s.handleEvents)
		api.Get("/events/stream", s.handleEventStream)

		api.Group(func(write chi.Router) {
			write.Use(RequireCaller)

			write.Post("/projects", s.handlePublish)
			write.Post("/projects/{id}/sales", s.handleAddSales)
			write.Post("/projects/{id}/close", s.handleClose)
			write.Post("/projects/{id}/merkle-root", s.handleProjectMerkleRoot)
			write.Post("/projects/{id}/manager", s.handleSetManager)
			write.Post("/sales/{id}/merkle-root", s.handleSaleMerkleRoot)
			write.Post("/accounts/approval", s.handleApproval)
			write.Post("/gifts", s.handleGift)

			write.Post("/admin/project-config", s.handleUpdateConfig)
			write.Post("/admin/withdraw", s.handleWithdraw)
			write.Post("/admin/members", s.handleGrantMembership)
			write.Post("/admin/admins", s.handleSetAdmin)
			write.Post("/admin/draw", s.handleDraw)

			write.Group(func(buy chi.Router) {
				buy.Use(s.limiter.Middleware)
				buy.Post("/sales/{id}/buy", s.handleBuy)
				buy.Post("/projects/{id}/pack/buy", s.handleBuyPack)
			})
		})
	})

	return otelhttp.NewHandler(r, "launchpadd")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			logging.MaskField("authorization", r.Header.Get("Authorization")),
		)
	})
}

// writeError maps engine reasons to 400, missing identity to 401 and
// everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: reqErr.msg})
	case errors.Is(err, errUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, errNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrNodeClosed):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case core.IsRejection(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		s.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func (s *Server) caller(r *http.Request) ([20]byte, error) {
	caller, ok := CallerFromContext(r.Context())
	if !ok {
		return [20]byte{}, errUnauthenticated
	}
	return caller, nil
}
