package server

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/pkg/config"
	"github.com/clinref/icf-mcp-server/pkg/docs"
	"github.com/clinref/icf-mcp-server/pkg/metrics"
)

// Server wraps the streamable MCP handler with the operational HTTP
// endpoints: Prometheus metrics, tool docs and a health probe.
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	handler http.Handler
	httpSrv *http.Server
	slots   chan struct{}
}

// New assembles the HTTP stack around the given MCP handler. The MCP
// endpoint goes through auth and the connection limiter; metrics,
// docs and health stay open.
func New(cfg *config.Config, logger *zap.Logger, mcpHandler http.Handler) *Server {
	s := &Server{
		config: cfg,
		logger: logger.Named("http"),
	}

	mcp := mcpHandler
	if cfg.SSE.MaxConnections > 0 {
		mcp = s.limitConnections(mcp, cfg.SSE.MaxConnections)
	}
	mcp = s.requireAuth(mcp)

	docsHandler := docs.NewHandler(cfg, logger)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp)
	mux.HandleFunc("/mcp/docs", docsHandler.HandleDocs)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", handleHealth)

	s.handler = metrics.HTTPMetricsMiddleware(mux, cfg.Server.Mode)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     s.handler,
		IdleTimeout: cfg.SSE.KeepAlive,
	}

	return s
}

// Handler returns the fully assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.httpSrv.Addr))
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}
