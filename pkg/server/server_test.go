package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/clinref/icf-mcp-server/pkg/config"
)

func testServerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 3000, Mode: "sse"},
		ICF: config.ICFConfig{
			Enabled: true,
			WHO: &config.WHOConfig{
				ClientID:     "test-id",
				ClientSecret: "test-secret",
			},
		},
	}
}

func okStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("mcp"))
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := New(testServerConfig(), zap.NewNop(), okStub())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDocsEndpoint(t *testing.T) {
	srv := New(testServerConfig(), zap.NewNop(), okStub())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp/docs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "icf_lookup") {
		t.Errorf("docs body does not list tools: %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := New(testServerConfig(), zap.NewNop(), okStub())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("metrics body is empty")
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	srv := New(testServerConfig(), zap.NewNop(), okStub())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "mcp" {
		t.Errorf("body = %q, want mcp", rec.Body.String())
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	cfg := testServerConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, Token: "good-token"}
	srv := New(cfg, zap.NewNop(), okStub())

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer wrong-token", http.StatusUnauthorized},
		{"malformed", "good-token", http.StatusUnauthorized},
		{"valid", "Bearer good-token", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestAuthDoesNotGuardHealth(t *testing.T) {
	cfg := testServerConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, Token: "good-token"}
	srv := New(cfg, zap.NewNop(), okStub())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestConnectionLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.SSE.MaxConnections = 1

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusOK)
	})
	srv := New(cfg, zap.NewNop(), blocking)

	firstDone := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
		firstDone <- rec.Code
	}()
	<-started

	// The single slot is held; the next request must be turned away.
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second request status = %d, want 503", rec.Code)
	}

	close(release)
	if code := <-firstDone; code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", code)
	}

	// With the slot free again the endpoint accepts connections.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("third request status = %d, want 200", rec.Code)
	}
}
