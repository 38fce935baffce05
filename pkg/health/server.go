// Package health serves liveness and readiness endpoints for the gateway.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tinyland-inc/verbsbot/pkg/logger"
)

// StatusFunc reports whether each enabled channel is running.
type StatusFunc func() map[string]bool

type Server struct {
	srv    *http.Server
	status StatusFunc
}

type readyResponse struct {
	Status   string          `json:"status"`
	Channels map[string]bool `json:"channels"`
}

func NewServer(host string, port int, status StatusFunc) *Server {
	s := &Server{status: status}
	s.srv = &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) ready(w http.ResponseWriter, _ *http.Request) {
	channels := s.status()
	resp := readyResponse{Status: "ready", Channels: channels}
	code := http.StatusOK
	for _, running := range channels {
		if !running {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.WarnCF("health", "Failed to write readiness response", map[string]any{"error": err.Error()})
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	logger.InfoCF("health", "Health server listening", map[string]any{"addr": s.srv.Addr})
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
