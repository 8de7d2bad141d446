// Package server exposes the journal over HTTP for the dashboard. It owns
// the router, the request logging and the scheduled rate refresh.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/acowan/tradebook/config"
	"github.com/acowan/tradebook/currency"
	"github.com/acowan/tradebook/importer"
	"github.com/acowan/tradebook/trade"
)

// Options wires the server to its collaborators.
type Options struct {
	Store        trade.Store
	Importer     *importer.Importer
	Rates        *currency.Provider
	BaseCurrency string

	Config config.ServerConfig
	// RefreshSchedule is a cron expression for the background rate refresh;
	// empty disables the job.
	RefreshSchedule string
	Log             zerolog.Logger
}

type Server struct {
	router *chi.Mux
	server *http.Server
	cron   *cron.Cron
	log    zerolog.Logger

	store    trade.Store
	importer *importer.Importer
	rates    *currency.Provider
	base     string
}

func New(opts Options) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		cron:     cron.New(),
		log:      opts.Log.With().Str("component", "server").Logger(),
		store:    opts.Store,
		importer: opts.Importer,
		rates:    opts.Rates,
		base:     opts.BaseCurrency,
	}

	s.setupMiddleware(opts.Config.AllowOrigins)
	s.setupRoutes()

	read, write, err := opts.Config.ParseTimeouts()
	if err != nil {
		return nil, err
	}
	s.server = &http.Server{
		Addr:         opts.Config.Addr,
		Handler:      s.router,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  60 * time.Second,
	}

	if opts.RefreshSchedule != "" {
		if _, err := s.cron.AddFunc(opts.RefreshSchedule, s.refreshRatesJob); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Server) setupMiddleware(allowOrigins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Delete("/", s.handleDeleteAllTrades)
			r.Delete("/{id}", s.handleDeleteTrade)
		})
		r.Get("/stats", s.handleStats)
		r.Get("/daily", s.handleDaily)
		r.Post("/import", s.handleImport)
		r.Post("/rates/refresh", s.handleRefreshRates)
	})
}

// Start runs the scheduler and serves HTTP until Shutdown.
func (s *Server) Start() error {
	s.cron.Start()
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown stops the scheduler and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	<-s.cron.Stop().Done()
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) refreshRatesJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.rates.Refresh(ctx)
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
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
