package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/pkg/metrics"
)

// requireAuth enforces bearer token authentication when enabled.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Auth.Enabled {
			metrics.RecordAuthRequest(false, true)
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ok := checkAuth(r, s.config.Auth.Token)
		metrics.RecordAuthValidationDuration(time.Since(start))
		metrics.RecordAuthRequest(ok, false)

		if !ok {
			s.logger.Warn("Rejected request with invalid credentials",
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func checkAuth(r *http.Request, token string) bool {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	want := "Bearer " + strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// limitConnections caps concurrent MCP connections. Requests beyond
// the cap get 503 instead of queueing behind long-lived streams.
func (s *Server) limitConnections(next http.Handler, max int) http.Handler {
	s.slots = make(chan struct{}, max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.slots <- struct{}{}:
			metrics.RecordSSEConnection()
			start := time.Now()
			defer func() {
				<-s.slots
				metrics.RecordSSEDisconnection(time.Since(start))
			}()
			next.ServeHTTP(w, r)
		default:
			metrics.RecordSSERejection()
			s.logger.Warn("Connection limit reached, rejecting request",
				zap.Int("max_connections", max),
				zap.String("remote_addr", r.RemoteAddr),
			)
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		}
	})
}
