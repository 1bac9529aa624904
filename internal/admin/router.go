// Package admin implements the external admin HTTP surface (spec §6's
// "Admin surface"): read-only listings over earmarks and operations, plus
// pause/unpause and cancellation admin actions. Grounded on
// aristath-sentinel/trader-go's internal/server/server.go for the
// chi.NewRouter()/setupMiddleware/setupRoutes shape, since the teacher
// repo's own automation_service.go registers routes through a
// gorilla-mux-style router and never imports chi.
package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/everclearorg/mark-sub000/internal/health"
	"github.com/everclearorg/mark-sub000/internal/pause"
)

// Config wires the admin surface's collaborators.
type Config struct {
	Store   Store
	Pauses  *pause.Registry
	Health  *health.Reporter
	Log     zerolog.Logger
	DevMode bool
}

// Server owns the chi router and the http.Server built around it.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New builds a Server listening on addr.
func New(addr string, cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "admin").Logger(),
	}

	healthReporter := cfg.Health
	if healthReporter == nil {
		healthReporter = health.New()
	}
	h := &handler{store: cfg.Store, pauses: cfg.Pauses, health: healthReporter, log: s.log}
	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(h)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(30 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(h *handler) {
	s.router.Get("/healthz", h.handleHealthz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/earmarks", func(r chi.Router) {
			r.Get("/", h.listEarmarks)
			r.Get("/{id}", h.getEarmark)
			r.Post("/{id}/cancel", h.cancelEarmark)
		})

		r.Route("/operations", func(r chi.Router) {
			r.Get("/", h.listOperations)
			r.Get("/{id}", h.getOperation)
			r.Post("/{id}/cancel", h.cancelOperation)
		})

		r.Route("/pauses", func(r chi.Router) {
			r.Get("/", h.listPauses)
			r.Post("/{key}/pause", h.setPause(true))
			r.Post("/{key}/unpause", h.setPause(false))
		})
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("admin request")
	})
}

// ListenAndServe starts the server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Addr reports the bound address, for logging at startup.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Raw exposes the underlying *http.Server so callers can drive graceful
// shutdown with their own context (s.Raw().Shutdown(ctx)).
func (s *Server) Raw() *http.Server {
	return s.server
}
