package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"timesheets/internal/config"
	"timesheets/internal/csrf"
	"timesheets/internal/handlers"
	"timesheets/internal/jobs"
	"timesheets/internal/security"
)

func newTestServer(t *testing.T, ping func(context.Context) error) (*HTTPServer, *csrf.Guard) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	guard := csrf.NewGuard("secret", time.Hour)
	cfg := &config.AppConfig{Environment: "test", HTTP: config.HTTPConfig{Host: "127.0.0.1", Port: 0}}
	handlerSet := handlers.NewHandlerSet(zerolog.Nop(), handlers.Deps{
		Config:       cfg,
		Issuer:       security.NewTokenIssuer("secret", time.Minute),
		Guard:        guard,
		Jobs:         jobs.NewRegistry(zerolog.Nop()),
		DatabasePing: ping,
	})

	srv, err := NewHTTPServer(cfg, zerolog.Nop(), handlerSet)
	if err != nil {
		t.Fatalf("NewHTTPServer returned error: %v", err)
	}
	return srv, guard
}

func TestPreflightAllowsCSRFHeader(t *testing.T) {
	srv, _ := newTestServer(t, func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/work-orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-CSRF-Token") {
		t.Fatalf("expected X-CSRF-Token to be allowed, got %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatalf("expected origin to be echoed, got %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(context.Context) error { return errors.New("connection refused") })

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	srv, guard := newTestServer(t, func(context.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/csrf-token", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("User-Agent", "curl/8")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// httptest requests come from 192.0.2.1.
	if !guard.Validate(guard.Fingerprint("192.0.2.1", "curl/8"), body.CSRFToken) {
		t.Fatal("expected the token to be bound to the socket address")
	}
	if guard.Validate(guard.Fingerprint("198.51.100.1", "curl/8"), body.CSRFToken) {
		t.Fatal("expected the forwarded address to be ignored")
	}
}
