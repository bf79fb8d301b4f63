package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ezrec/legv8/emulator"
)

const (
	SESSION_HEADER  = "X-Session-Id" // Request header selecting a session.
	SESSION_DEFAULT = "default"      // Session used when the header is absent.
	REQUEST_LIMIT   = 1 << 20        // Maximum request body, in bytes.
)

// Config of the server.
type Config struct {
	Addr        string          // Listen address.
	RunTimeout  time.Duration   // Bound on a single run request.
	MaxSessions int             // Maximum number of HTTP sessions.
	Engine      emulator.Config // Configuration of each session's emulator.

	Defines map[string]string // Assembler predefines for every session.
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:5000",
		RunTimeout:  5 * time.Second,
		MaxSessions: 64,
		Engine:      emulator.DefaultConfig(),
	}
}

// Server routes operation requests to sessions.
type Server struct {
	Config
	Logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// NewServer creates a server with no sessions.
func NewServer(config Config, logger *slog.Logger) (srv *Server) {
	if logger == nil {
		logger = slog.Default()
	}

	srv = &Server{
		Config:   config,
		Logger:   logger,
		sessions: map[string]*Session{},
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	for _, op := range []string{OP_LOAD, OP_MICRO_STEP, OP_FULL_INSTRUCTION, OP_RUN, OP_RESET, OP_RETURN_BACK} {
		srv.mux.HandleFunc("/api/"+op, srv.handleOp(op))
	}
	srv.mux.HandleFunc("/api/ws", srv.handleWebSocket)

	return
}

// Session returns the session with an id, creating it if needed.
func (srv *Server) Session(id string) (s *Session, err error) {
	if id == "" {
		id = SESSION_DEFAULT
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()

	s, ok := srv.sessions[id]
	if ok {
		return
	}
	if srv.MaxSessions > 0 && len(srv.sessions) >= srv.MaxSessions {
		err = ErrSessionLimit
		return
	}

	s = NewSession(id, srv.Config, srv.Logger)
	srv.sessions[id] = s
	srv.Logger.Debug("session created", "session", id, "sessions", len(srv.sessions))

	return
}

// Sessions returns the number of HTTP sessions.
func (srv *Server) Sessions() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.mux.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{
		"status":  STATUS_ERROR,
		"message": err.Error(),
	})
}

// decodeRequest reads an optional JSON body.
func decodeRequest(r *http.Request, req *Request) (err error) {
	content, err := io.ReadAll(io.LimitReader(r.Body, REQUEST_LIMIT+1))
	if err != nil {
		return
	}
	if len(content) > REQUEST_LIMIT {
		err = ErrRequestInvalid
		return
	}
	if len(content) == 0 {
		return
	}
	return json.Unmarshal(content, req)
}

func (srv *Server) handleOp(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req Request
		err := decodeRequest(r, &req)
		if err != nil {
			srv.Logger.Debug("bad request", "op", op, "err", err)
			writeError(w, http.StatusBadRequest, ErrRequestInvalid)
			return
		}
		req.Op = op

		s, err := srv.Session(r.Header.Get(SESSION_HEADER))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}

		resp, err := s.Do(r.Context(), &req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Reply is a WebSocket response to a Request.
type Reply struct {
	Op     string `json:"op"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleWebSocket serves a private session over a WebSocket connection,
// one Reply per Request, in order.
func (srv *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.Logger.Warn("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	s := NewSession("ws-"+r.RemoteAddr, srv.Config, srv.Logger)
	s.logger.Info("websocket connected")

	for {
		var req Request
		err = conn.ReadJSON(&req)
		if err != nil {
			var syntax *json.SyntaxError
			var mistyped *json.UnmarshalTypeError
			if !errors.As(err, &syntax) && !errors.As(err, &mistyped) {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warn("websocket read", "err", err)
				}
				return
			}
			err = conn.WriteJSON(Reply{Error: ErrRequestInvalid.Error()})
			if err != nil {
				return
			}
			continue
		}

		reply := Reply{Op: req.Op}
		reply.Result, err = s.Do(r.Context(), &req)
		if err != nil {
			reply.Error = err.Error()
		}
		err = conn.WriteJSON(reply)
		if err != nil {
			s.logger.Warn("websocket write", "err", err)
			return
		}
	}
}

// ListenAndServe serves on Addr until the context is done.
func (srv *Server) ListenAndServe(ctx context.Context) (err error) {
	hs := &http.Server{
		Addr:              srv.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- hs.Shutdown(shutdown)
	}()

	srv.Logger.Info("listening", "addr", srv.Addr)
	err = hs.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = <-done
	}

	return
}
