// Package server exposes a session over HTTP: a REST API for commands and
// reads, /metrics for Prometheus and a websocket stream of dashboard views.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rustyeddy/papertrade/metrics"
	"github.com/rustyeddy/papertrade/session"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	sess    *session.Session
	hub     *Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
	router  *mux.Router
	http    *http.Server

	// base is the context the session's scheduler runs under. Request
	// contexts end with the response, so Start must not use them.
	base context.Context
}

// New builds the router for sess. m may be nil, in which case /metrics is
// not served.
func New(addr string, sess *session.Session, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		sess:    sess,
		hub:     NewHub(sess, logger),
		metrics: m,
		logger:  logger,
		base:    context.Background(),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logging(s.logger))

	r.HandleFunc("/health", s.health).Methods("GET")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	r.HandleFunc("/ws", s.hub.HandleWS).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/dashboard", s.dashboard).Methods("GET")
	api.HandleFunc("/account", s.account).Methods("GET")
	api.HandleFunc("/positions", s.listPositions).Methods("GET")
	api.HandleFunc("/positions", s.openPosition).Methods("POST")
	api.HandleFunc("/positions/{id}", s.getPosition).Methods("GET")
	api.HandleFunc("/positions/{id}/close", s.closePosition).Methods("POST")
	api.HandleFunc("/performance", s.performance).Methods("GET")
	api.HandleFunc("/risk", s.risk).Methods("GET")
	api.HandleFunc("/session/start", s.startSession).Methods("POST")
	api.HandleFunc("/session/stop", s.stopSession).Methods("POST")
	api.HandleFunc("/session/reset", s.resetSession).Methods("POST")

	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully. The
// websocket hub and any session started over the API live under ctx.
func (s *Server) Run(ctx context.Context) error {
	s.base = ctx
	go s.hub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.http.Addr))
		errc <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.http.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("http server: shutdown: %w", err)
	}
	return nil
}
