package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the session registry, room directory and dispatcher behind an
// HTTP listener serving the WebSocket endpoint, health and metrics.
type Server struct {
	config     ServerConfig
	configPath string

	registry   *SessionRegistry
	rooms      *RoomDirectory
	dispatcher *Dispatcher
	metrics    *Metrics

	httpServer *http.Server
	nextConnID atomic.Uint64
	startTime  time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort          int
	EnableMetrics     bool
	EnablePprof       bool
	MaxMessageLength  int
	MaxFileBytes      int
	MaxUsernameLength int
	SendQueueSize     int
}

// DefaultConfig returns default server configuration
func DefaultConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:          4000,
		EnableMetrics:     true,
		MaxMessageLength:  4096,
		MaxFileBytes:      2 << 20,
		MaxUsernameLength: 32,
		SendQueueSize:     64,
	}
}

// NewServer creates a new server instance
func NewServer(config ServerConfig, configPath string) *Server {
	registry := NewSessionRegistry()
	rooms := NewRoomDirectory()

	return &Server{
		config:     config,
		configPath: configPath,
		registry:   registry,
		rooms:      rooms,
		dispatcher: NewDispatcher(registry, rooms, config),
		startTime:  time.Now(),
	}
}

// EnableMetrics registers Prometheus metrics and attaches them to every
// component. Call before Start; never in tests (duplicate registration
// panics).
func (s *Server) EnableMetrics() {
	s.metrics = NewMetrics()
	s.dispatcher.SetMetrics(s.metrics)
}

// Start begins serving HTTP on the configured port. Non-blocking.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/healthz", s.HealthHandler)

	if s.config.EnableMetrics {
		if s.metrics == nil {
			s.EnableMetrics()
		}
		mux.Handle("/metrics", promhttp.Handler())
	}

	if s.config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	addr := fmt.Sprintf(":%d", s.config.HTTPPort)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	log.Printf("HTTP server listening on %s (ws://localhost%s/ws)", addr, addr)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the server: the listener shuts down first, then all
// live sessions are closed.
func (s *Server) Stop() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}

	s.registry.CloseAll()
	return err
}

// Dispatcher exposes the event dispatcher, mainly for tests.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}
