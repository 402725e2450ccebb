package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/satelink/internal/logging"
	"github.com/muurk/satelink/internal/satel"
)

// DefaultPort is the port the event stream listens on unless configured
// otherwise.
const DefaultPort = 8525

// Config holds the bridge server configuration.
type Config struct {
	Host string
	Port int
}

// Server publishes one panel's events over WebSocket. It registers
// itself as the driver's callback consumer, so it should be wired
// before the driver starts.
type Server struct {
	client *satel.Client
	hub    *Hub

	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
}

// New creates a bridge server for the given driver.
func New(client *satel.Client, cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		client: client,
		hub:    NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The bridge serves the local network only; subscribers are
			// not browsers with an origin to check.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/status", s.handleStatus)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	client.OnZoneChanged(func(status satel.ZoneStatus) {
		s.hub.Publish(zoneEvent(status))
	})
	client.OnOutputChanged(func(status satel.OutputStatus) {
		s.hub.Publish(outputEvent(status))
	})
	client.OnAlarmStatusChanged(func() {
		s.hub.Publish(partitionEvent(client.PartitionStates()))
	})

	return s
}

// Addr returns the listener address, once Start has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.httpServer.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listener and serves until Shutdown. It blocks.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logging.Info("Bridge listening", zap.String("addr", listener.Addr().String()))
	s.hub.Publish(connectionEvent(s.client.Connected()))

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("bridge server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting subscribers and drops the connected ones.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge")
	err := s.httpServer.Shutdown(ctx)
	s.hub.Close()
	return err
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	logging.Info("Subscriber connected", zap.String("remote_addr", r.RemoteAddr))
	s.hub.attach(conn)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"connected":   s.client.Connected(),
		"subscribers": s.hub.Subscribers(),
	})
}
