package mcp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"minisearch/internal/dispatch"
	"minisearch/internal/protocol"
	"minisearch/internal/ratelimit"
)

const (
	protocolVersion = "2025-03-26"
	serverName      = "minisearch"
	serverVersion   = "0.1.0"

	sessionMaxAge = 4 * time.Hour
)

type Options struct {
	Dispatcher *dispatch.Dispatcher
	RateRPS    float64
	RateBurst  int
	Logf       func(format string, args ...interface{})
}

// Server exposes the dictionary tools over MCP streamable HTTP: JSON-RPC
// 2.0 requests on a single POST endpoint, with a session id assigned at
// initialize.
type Server struct {
	dispatcher *dispatch.Dispatcher
	limiter    *ratelimit.PerIP
	logf       func(format string, args ...interface{})

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewServer(opts Options) *Server {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Server{
		dispatcher: opts.Dispatcher,
		limiter:    ratelimit.NewPerIP(opts.RateRPS, opts.RateBurst),
		logf:       logf,
		sessions:   make(map[string]time.Time),
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data,omitempty"`
}

type rpcErrorData struct {
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// Handler returns the MCP endpoint for mounting on a shared mux.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResponse(w, http.StatusMethodNotAllowed, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32600, Message: "MCP endpoint accepts POST only"},
		})
		return
	}

	if !s.limiter.Allow(ratelimit.RealIP(r)) {
		writeResponse(w, http.StatusTooManyRequests, rpcResponse{
			JSONRPC: "2.0",
			Error: &rpcError{
				Code:    -32000,
				Message: "rate limit exceeded",
				Data:    &rpcErrorData{Code: protocol.ErrorCodeRateLimited, Retryable: true},
			},
		})
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error"},
		})
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, req.ID)
	case "notifications/initialized":
		w.WriteHeader(http.StatusAccepted)
	case "tools/list":
		if !s.requireSession(w, r, req.ID) {
			return
		}
		s.handleToolsList(w, req.ID)
	case "tools/call":
		if !s.requireSession(w, r, req.ID) {
			return
		}
		s.handleToolsCall(r, w, req.Params, req.ID)
	default:
		writeResponse(w, http.StatusOK, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "method not found: " + req.Method},
		})
	}
}

func (s *Server) handleInitialize(w http.ResponseWriter, id interface{}) {
	session := newSessionID()

	s.mu.Lock()
	now := time.Now()
	for sid, created := range s.sessions {
		if now.Sub(created) > sessionMaxAge {
			delete(s.sessions, sid)
		}
	}
	s.sessions[session] = now
	s.mu.Unlock()

	s.logf("mcp: session %s initialized", session[:8])

	w.Header().Set(protocol.MCPSessionHeader, session)
	writeResult(w, http.StatusOK, id, map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{"listChanged": false},
		},
		"serverInfo": map[string]interface{}{
			"name":    serverName,
			"version": serverVersion,
		},
	})
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request, id interface{}) bool {
	session := strings.TrimSpace(r.Header.Get(protocol.MCPSessionHeader))

	s.mu.Lock()
	_, ok := s.sessions[session]
	s.mu.Unlock()

	if session == "" || !ok {
		writeResponse(w, http.StatusNotFound, rpcResponse{
			JSONRPC: "2.0",
			ID:      id,
			Error: &rpcError{
				Code:    -32001,
				Message: "unknown or expired session, run initialize first",
				Data:    &rpcErrorData{Code: protocol.ErrorCodeSessionNotFound},
			},
		})
		return false
	}
	return true
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read only fails when the platform entropy source is broken
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}

func writeResult(w http.ResponseWriter, status int, id, result interface{}) {
	writeResponse(w, status, rpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func writeResponse(w http.ResponseWriter, status int, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
