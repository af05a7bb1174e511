// Package server exposes the watcher over HTTP: a small control API, a
// WebSocket stream of change events, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ironsheep/screen-text-watch/internal/capture"
	"github.com/ironsheep/screen-text-watch/internal/config"
	"github.com/ironsheep/screen-text-watch/internal/metrics"
	"github.com/ironsheep/screen-text-watch/internal/monitor"
)

const writeTimeout = 5 * time.Second

// Controller is the monitor surface the server drives.
type Controller interface {
	Start(region capture.Region, interval time.Duration) error
	Stop() error
	Running() bool
	Events() <-chan monitor.Event
}

// Server fans monitor events out to WebSocket clients and answers control
// requests. It tracks the latest text snapshot from the event stream, so
// status queries never reach into the monitor's loop state.
type Server struct {
	ctrl     Controller
	cfg      *config.Config
	metrics  *metrics.Metrics
	displays capture.Provider

	mu       sync.RWMutex
	conns    map[*websocket.Conn]struct{}
	lastText string
}

// New wires a Server to the given controller and starts the broadcast pump
// over the controller's event channel.
func New(ctrl Controller, cfg *config.Config, m *metrics.Metrics, displays capture.Provider) *Server {
	s := &Server{
		ctrl:     ctrl,
		cfg:      cfg,
		metrics:  m,
		displays: displays,
		conns:    make(map[*websocket.Conn]struct{}),
	}
	go s.pump()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/monitor/start", s.handleStart)
	mux.HandleFunc("POST /api/monitor/stop", s.handleStop)
	mux.HandleFunc("GET /api/displays", s.handleDisplays)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

type statusResponse struct {
	Running  bool   `json:"running"`
	LastText string `json:"last_text"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.lastText
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, statusResponse{
		Running:  s.ctrl.Running(),
		LastText: last,
	})
}

// startRequest overrides the configured region and cadence per field;
// omitted fields keep their configured values.
type startRequest struct {
	X          *int `json:"x"`
	Y          *int `json:"y"`
	Width      *int `json:"width"`
	Height     *int `json:"height"`
	IntervalMS *int `json:"interval_ms"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	region := s.cfg.Region
	interval := s.cfg.Interval()

	if r.ContentLength != 0 {
		var req startRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.X != nil {
			region.X = *req.X
		}
		if req.Y != nil {
			region.Y = *req.Y
		}
		if req.Width != nil {
			region.Width = *req.Width
		}
		if req.Height != nil {
			region.Height = *req.Height
		}
		if req.IntervalMS != nil {
			interval = time.Duration(*req.IntervalMS) * time.Millisecond
		}
	}

	if err := s.ctrl.Start(region, interval); err != nil {
		var re *capture.RegionError
		switch {
		case errors.Is(err, monitor.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case errors.As(err, &re):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "started",
		"region":      region,
		"interval_ms": interval.Milliseconds(),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Stop(); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			writeError(w, http.StatusConflict, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleDisplays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"displays": capture.Displays(s.displays),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	clients := len(s.conns)
	s.mu.Unlock()
	slog.Info("websocket client connected", "clients", clients)

	// The stream is broadcast-only; the read loop exists to notice the
	// client going away.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")
	slog.Info("websocket client disconnected")
}

// pump consumes monitor events forever, keeping the status snapshot fresh
// and fanning each event out to connected clients.
func (s *Server) pump() {
	for ev := range s.ctrl.Events() {
		s.recordSnapshot(ev)
		s.broadcast(encodeEvent(ev))
	}
}

func (s *Server) recordSnapshot(ev monitor.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e := ev.(type) {
	case monitor.NewText:
		s.lastText = e.Text
	case monitor.TextChanged:
		s.lastText = e.New
	case monitor.TextCleared:
		s.lastText = ""
	}
}

// broadcast writes msg to every client. Failed writes close and forget the
// connection; a dead client never wedges the pump longer than writeTimeout.
func (s *Server) broadcast(msg eventMessage) {
	s.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	var failed []*websocket.Conn
	for _, c := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, c, msg)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "error", err)
			failed = append(failed, c)
		}
	}

	if len(failed) > 0 {
		s.mu.Lock()
		for _, c := range failed {
			delete(s.conns, c)
		}
		s.mu.Unlock()
		for _, c := range failed {
			c.Close(websocket.StatusAbnormalClosure, "write failed")
		}
	}
}

// Close disconnects all WebSocket clients.
func (s *Server) Close() {
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()
	for c := range conns {
		c.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
