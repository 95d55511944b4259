package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hylla/timebox/internal/app"
)

func TestNewHandlerRequiresTracker(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() error = nil, want non-nil")
	}
}

func TestNewHandlerRejectsEndpointCollision(t *testing.T) {
	deps := Dependencies{Tracker: app.NewStore(nil)}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, deps); err == nil {
		t.Fatal("expected collision error")
	}
}

func TestNewHandlerRoutes(t *testing.T) {
	store := app.NewStore(nil)
	if _, err := store.StartActivity(t.Context(), "Focus", 25); err != nil {
		t.Fatalf("StartActivity() error = %v", err)
	}
	handler, cfg, err := NewHandler(Config{}, Dependencies{Tracker: store})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.ServerName != "timebox" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}

	for path, want := range map[string]string{
		"/healthz":           `"status":"ok"`,
		"/readyz":            `"status":"ok"`,
		"/api/v1/status":     `"name":"Focus"`,
		"/api/v1/active":     `"remaining":`,
		"/api/v1/activities": `"activities"`,
		"/metrics":           `timebox_activities{status="in-progress"} 1`,
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("GET %s body = %q, want %s", path, rec.Body.String(), want)
		}
	}
}

func TestNewHandlerRejectsReservedEndpoints(t *testing.T) {
	deps := Dependencies{Tracker: app.NewStore(nil)}
	for _, endpoint := range []string{"/healthz", "readyz", "/metrics/"} {
		if _, _, err := NewHandler(Config{APIEndpoint: endpoint}, deps); err == nil {
			t.Fatalf("expected reserved endpoint %q to be rejected", endpoint)
		}
		if _, _, err := NewHandler(Config{MCPEndpoint: endpoint}, deps); err == nil {
			t.Fatalf("expected reserved mcp endpoint %q to be rejected", endpoint)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":          "/api/v1",
		"/":         "/api/v1",
		"api":       "/api",
		"//api/v2/": "/api/v2",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in, "/api/v1"); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	handler, _, err := NewHandler(Config{}, Dependencies{Tracker: app.NewStore(nil)})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, handler) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("unexpected health body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
