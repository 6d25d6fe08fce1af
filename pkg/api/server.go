package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"

	"github.com/rubiojr/turnsearch/pkg/backend"
	"github.com/rubiojr/turnsearch/pkg/debounce"
	"github.com/rubiojr/turnsearch/pkg/log"
	"github.com/rubiojr/turnsearch/pkg/session"
	"github.com/rubiojr/turnsearch/pkg/textclean"
)

// Upstream is the backend used for new requests and live sessions,
// together with the autocomplete delay those sessions use.
type Upstream struct {
	Backend session.Backend
	Delay   time.Duration
}

type Server struct {
	upstream atomic.Pointer[Upstream]
	clean    textclean.Func
	clock    debounce.Clock
	upgrader websocket.Upgrader
	log      *log.Logger

	mu   sync.Mutex
	live map[string]*liveConn
}

type Option func(*Server)

// WithClock sets the clock that drives live session debouncing.
func WithClock(c debounce.Clock) Option {
	return func(s *Server) { s.clock = c }
}

// WithCleaner replaces the text sanitizer.
func WithCleaner(f textclean.Func) Option {
	return func(s *Server) { s.clean = f }
}

func NewServer(up Upstream, opts ...Option) *Server {
	s := &Server{
		clean: textclean.Clean,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log:  log.ForService("api"),
		live: make(map[string]*liveConn),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.SetUpstream(up)
	return s
}

// SetUpstream swaps the backend. In-flight requests and open live sessions
// keep the one they started with.
func (s *Server) SetUpstream(up Upstream) {
	s.upstream.Store(&up)
}

func (s *Server) Upstream() Upstream {
	return *s.upstream.Load()
}

// LiveSessions returns the number of open live sessions.
func (s *Server) LiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close disconnects every live session. http.Server.Shutdown does not
// track hijacked connections, so callers shutting down must call it too.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*liveConn, 0, len(s.live))
	for _, lc := range s.live {
		conns = append(conns, lc)
	}
	s.mu.Unlock()

	for _, lc := range conns {
		lc.close()
	}
}

func (s *Server) track(lc *liveConn) {
	s.mu.Lock()
	s.live[lc.id] = lc
	s.mu.Unlock()
}

func (s *Server) untrack(lc *liveConn) {
	s.mu.Lock()
	delete(s.live, lc.id)
	s.mu.Unlock()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warnf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, backend.ErrRequestFailed) {
		s.writeError(w, http.StatusBadGateway, "Upstream request failed", err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Compress gzips responses for clients that accept it. It must not wrap
// websocket routes.
func Compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
