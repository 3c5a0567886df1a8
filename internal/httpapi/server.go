// Package httpapi exposes the session layer to its consumers over HTTP.
//
// The surface is deliberately small: a write operation per provider path
// (credential login, OAuth authorization result), a read operation that
// re-enriches and re-signs the session, logout, and operational endpoints.
// The session travels as a signed bearer token; the server keeps no per-user
// state.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/classdesk/session-gateway/internal/monitoring"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/token"
)

// Server is the session API server.
type Server struct {
	assembler *session.Assembler
	codec     *token.Codec
	metrics   *monitoring.MetricsCollector
	httpSrv   *http.Server
}

// Config configures the server.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer wires the session API routes.
func NewServer(cfg Config, assembler *session.Assembler, codec *token.Codec, metrics *monitoring.MetricsCollector) *Server {
	s := &Server{
		assembler: assembler,
		codec:     codec,
		metrics:   metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session/login", s.withRequestID(s.handleLogin))
	mux.HandleFunc("POST /v1/session/oauth", s.withRequestID(s.handleOAuth))
	mux.HandleFunc("GET /v1/session", s.withRequestID(s.handleRead))
	mux.HandleFunc("POST /v1/session/logout", s.withRequestID(s.handleLogout))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks serving the API.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.httpSrv.Addr).Msg("httpapi: session API listening")
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
