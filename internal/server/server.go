package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/specloom/specloom/internal/campaign"
	"github.com/specloom/specloom/internal/db"
	"github.com/specloom/specloom/internal/interview"
	"github.com/specloom/specloom/internal/llm"
	"github.com/specloom/specloom/internal/pipeline"
	"github.com/specloom/specloom/internal/session"
	"github.com/specloom/specloom/internal/stage"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server wires the interview, stage, pipeline and campaign features
// onto one router over a shared store and LLM provider.
type Server struct {
	cfg        Config
	db         *db.DB
	provider   llm.Provider
	model      string
	sessions   *session.Store
	campaigns  *campaign.Store
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all features registered.
func New(cfg Config, database *db.DB, provider llm.Provider, model string) *Server {
	s := &Server{
		cfg:      cfg,
		db:       database,
		provider: provider,
		model:    model,
	}

	s.sessions = session.NewStore(database)
	s.campaigns = campaign.NewStore(database, s.sessions)
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Pipeline runs stream four sequential generations, so the ceiling
	// is well above a single-request timeout.
	r.Use(middleware.Timeout(10 * time.Minute))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Account-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Funnel events from the interview and stage features feed the
	// owning campaign's counters. Tracking is best-effort.
	track := func(ctx context.Context, campaignID, event string) {
		if err := s.campaigns.Track(ctx, campaignID, event); err != nil {
			log.Printf("[server] track %s for campaign %s: %v", event, campaignID, err)
		}
	}

	gen := stage.NewGenerator(s.sessions, s.provider, s.model)
	engine := interview.NewEngine(s.sessions, s.provider, s.model)
	orch := pipeline.NewOrchestrator(gen, s.sessions, pipeline.NewLeaseStore(s.db))

	session.RegisterRoutes(r, s.sessions)
	interview.RegisterRoutes(r, engine, s.sessions, track)
	stage.RegisterRoutes(r, gen, s.sessions, track)
	pipeline.RegisterRoutes(r, orch, s.sessions)
	campaign.RegisterRoutes(r, s.campaigns)

	return r
}

// Router returns the chi router, used by tests to serve requests directly.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Sessions returns the session store.
func (s *Server) Sessions() *session.Store { return s.sessions }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("specloom server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
