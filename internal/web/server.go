package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"minisearch/internal/agent"
	"minisearch/internal/protocol"
	"minisearch/internal/ratelimit"
)

// TurnRunner is the slice of the agent the web layer drives.
type TurnRunner interface {
	RunSafe(ctx context.Context, query string) agent.Response
}

type Options struct {
	Agent     TurnRunner
	StaticDir string
	// MCP, when set, is mounted on MCPPath of the same listener.
	MCPPath   string
	MCP       http.Handler
	RateRPS   float64
	RateBurst int
	Logf      func(format string, args ...interface{})
}

// Server is the user-facing HTTP surface: the ask API, health, and the
// static chat page.
type Server struct {
	agent     TurnRunner
	staticDir string
	mcpPath   string
	mcp       http.Handler
	limiter   *ratelimit.PerIP
	logf      func(format string, args ...interface{})
}

func NewServer(opts Options) *Server {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Server{
		agent:     opts.Agent,
		staticDir: opts.StaticDir,
		mcpPath:   opts.MCPPath,
		mcp:       opts.MCP,
		limiter:   ratelimit.NewPerIP(opts.RateRPS, opts.RateBurst),
		logf:      logf,
	}
}

// Handler builds the full middleware stack. Order matters: the request log
// sees every request, CORS headers go on everything, and the rate limit
// guards only the expensive ask endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ask", s.withRateLimit(s.handleAsk))
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.mcp != nil && s.mcpPath != "" {
		mux.Handle(s.mcpPath, s.mcp)
	}
	if dir := strings.TrimSpace(s.staticDir); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(dir)))
		}
	}
	return s.withRequestLog(s.withCORS(mux))
}

// Serve blocks until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var query string
	switch r.Method {
	case http.MethodPost:
		var req askRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			s.writeAskError(w, http.StatusBadRequest, "request body must be JSON with a query field")
			return
		}
		query = req.Query
	case http.MethodGet:
		query = r.URL.Query().Get("q")
	default:
		w.Header().Set("Allow", "GET, POST")
		s.writeAskError(w, http.StatusMethodNotAllowed, "use POST /api/ask")
		return
	}

	query = strings.TrimSpace(query)
	if query == "" {
		s.writeAskError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	resp := s.agent.RunSafe(r.Context(), query)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeAskError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, agent.Response{
		OK:       false,
		Language: agent.LanguageEnglish,
		Error:    protocol.ErrorCodeInvalidArgument,
		Message:  message,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(ratelimit.RealIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, agent.Response{
				OK:       false,
				Language: agent.LanguageEnglish,
				Error:    protocol.ErrorCodeRateLimited,
				Message:  "too many requests, slow down",
			})
			return
		}
		next(w, r)
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+protocol.MCPSessionHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logf("http: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
