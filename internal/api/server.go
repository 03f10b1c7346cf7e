package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/tblmaker/internal/config"
	"github.com/dgallion1/tblmaker/internal/convert"
	"github.com/dgallion1/tblmaker/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for tblmaker.
type Server struct {
	router    chi.Router
	converter *convert.Converter
	results   *convert.ResultStore
	metrics   *metrics.Metrics
	log       *slog.Logger
	cfg       config.Config
	help      []byte
}

// NewServer creates and configures the HTTP server.
func NewServer(conv *convert.Converter, results *convert.ResultStore, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		converter: conv,
		results:   results,
		metrics:   m,
		log:       log,
		cfg:       cfg,
	}
	s.help = renderHelp(log)
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(RequestMetrics(s.metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/help", s.handleHelp)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/convert/batch", s.handleBatchConvert)
		r.Get("/api/convert/{id}", s.handleResult)
		r.Get("/api/convert/{id}/json", s.handleDownload)
		r.Get("/api/convert/{id}/preview", s.handlePreview)
		r.Get("/api/stats/convert", s.handleConvertStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
