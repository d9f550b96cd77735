// Package control exposes the link over a local HTTP JSON API plus a
// WebSocket event stream for state transitions.
package control

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"btlink/pkg/config"
	"btlink/pkg/link"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// local control surface only
	CheckOrigin: func(*http.Request) bool { return true },
}

type stateResponse struct {
	State string `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type connectRequest struct {
	Address string `json:"address"`
	Sender  bool   `json:"sender"`
}

// Server serves the control API for one link.
type Server struct {
	cfg  config.ControlConfig
	link *link.Link
	hub  *Hub
	log  *zap.Logger

	srv *http.Server
	ln  net.Listener
}

// New builds the server and hooks the link's state transitions into the
// event stream.
func New(cfg config.ControlConfig, lnk *link.Link, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:  cfg,
		link: lnk,
		hub:  NewHub(log),
		log:  log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/connect", s.handleConnect)
	mux.HandleFunc("/disconnect", s.handleDisconnect)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/ws", s.handleWS)
	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lnk.OnStateChange(func(st link.State) {
		s.hub.Broadcast(Event{Type: "state", Payload: StatePayload{State: st.String()}})
	})
	return s
}

// Start binds the configured address and serves in the background. Bind
// errors surface here, not from the serve goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("control api listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("control api serve failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.cfg.ListenAddr
	}
	return s.ln.Addr().String()
}

// Shutdown disconnects event stream clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: s.link.State().String()})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	s.link.Start()
	writeJSON(w, http.StatusOK, stateResponse{State: s.link.State().String()})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "address is required"})
		return
	}
	s.link.Connect(req.Address, req.Sender)
	writeJSON(w, http.StatusOK, stateResponse{State: s.link.State().String()})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	s.link.Disconnect()
	writeJSON(w, http.StatusOK, stateResponse{State: s.link.State().String()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	s.link.Stop()
	writeJSON(w, http.StatusOK, stateResponse{State: s.link.State().String()})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.hub.Add(conn)

	// current state first, so clients need no separate GET
	ev := Event{Type: "state", Payload: StatePayload{State: s.link.State().String()}}
	if err := s.hub.Send(conn, ev); err != nil {
		s.hub.Remove(conn)
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.hub.Remove(conn)
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
