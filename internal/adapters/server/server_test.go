package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/webherbas/taskflow/internal/adapters/storage/sqlite"
	"github.com/webherbas/taskflow/internal/app"
)

// newTestBoard builds a board over in-memory sqlite.
func newTestBoard(t *testing.T) *app.Board {
	t.Helper()
	store, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	n := 0
	board := app.NewBoard(app.NewStorage(store, nil), func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}, nil, app.BoardConfig{})
	board.Reload(context.Background())
	return board
}

// TestNewHandlerRoutesEverySurface verifies pages, health, API, and MCP are mounted.
func TestNewHandlerRoutesEverySurface(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, Dependencies{Board: newTestBoard(t)})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	cases := []struct {
		path   string
		status int
		needle string
	}{
		{path: "/healthz", status: http.StatusOK, needle: `"ok"`},
		{path: "/readyz", status: http.StatusOK, needle: `"ok"`},
		{path: "/api/v1/tasks", status: http.StatusOK, needle: `"items"`},
		{path: "/api/v1/nope", status: http.StatusNotFound, needle: "not_found"},
		{path: "/tareways", status: http.StatusOK, needle: "Pendientes"},
		{path: "/", status: http.StatusOK, needle: "Completados"},
	}
	for _, tc := range cases {
		resp, err := server.Client().Get(server.URL + tc.path)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", tc.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != tc.status {
			t.Fatalf("GET %s status = %d, want %d", tc.path, resp.StatusCode, tc.status)
		}
		if !strings.Contains(string(body), tc.needle) {
			t.Fatalf("GET %s body missing %q: %s", tc.path, tc.needle, body)
		}
	}

	resp, err := server.Client().Post(server.URL+"/api/v1/tasks", "application/json", strings.NewReader(`{"titulo":"via api"}`))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST tasks status = %d, want 201", resp.StatusCode)
	}
	page, err := server.Client().Get(server.URL + "/tareways")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(page.Body)
	_ = page.Body.Close()
	if !strings.Contains(string(body), "via api") {
		t.Fatal("expected API-created task on board page")
	}
}

// TestNormalizeConfig verifies defaults and endpoint validation.
func TestNormalizeConfig(t *testing.T) {
	cfg, err := normalizeConfig(Config{HTTPBind: " :9000 ", APIEndpoint: "api/", MCPEndpoint: "//tools//"})
	if err != nil {
		t.Fatalf("normalizeConfig() error = %v", err)
	}
	if cfg.HTTPBind != ":9000" || cfg.APIEndpoint != "/api" || cfg.MCPEndpoint != "/tools" || cfg.ServerName != "taskflow" || cfg.ServerVersion != "dev" {
		t.Fatalf("unexpected config %#v", cfg)
	}
	if _, err := normalizeConfig(Config{APIEndpoint: "/x", MCPEndpoint: "x"}); err == nil {
		t.Fatal("expected collision error")
	}
	if _, err := normalizeConfig(Config{APIEndpoint: "/tareways"}); err == nil {
		t.Fatal("expected reserved endpoint error")
	}
	if got := normalizeEndpoint("/", "/mcp"); got != "/mcp" {
		t.Fatalf("normalizeEndpoint(/) = %q, want /mcp", got)
	}
}

// TestNewHandlerRequiresBoard verifies dependency validation.
func TestNewHandlerRequiresBoard(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("expected error for missing board")
	}
}

// TestRunStopsOnContextCancel verifies the bound address is reported and
// cancellation shuts the server down.
func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listening := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: "127.0.0.1:0"}, Dependencies{
			Board:    newTestBoard(t),
			OnListen: func(addr string) { listening <- addr },
		})
	}()

	var addr string
	select {
	case addr = <-listening:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	if strings.HasSuffix(addr, ":0") {
		t.Fatalf("expected a concrete port, got %q", addr)
	}
	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("Get(healthz) error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

// TestRunReportsListenFailure verifies a busy port surfaces as an error.
func TestRunReportsListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()
	err = Run(context.Background(), Config{HTTPBind: ln.Addr().String()}, Dependencies{Board: newTestBoard(t)})
	if err == nil || !strings.Contains(err.Error(), "listen on") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

// TestReadinessCountsItemsPerStatus verifies the readiness payload.
func TestReadinessCountsItemsPerStatus(t *testing.T) {
	board := newTestBoard(t)
	ctx := context.Background()
	for _, title := range []string{"uno", "dos"} {
		if _, err := board.Add(ctx, app.AddInput{Title: title}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	rec := httptest.NewRecorder()
	readiness(board).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var payload struct {
		Status string         `json:"status"`
		Items  int            `json:"items"`
		Counts map[string]int `json:"counts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Status != "ok" || payload.Items != 2 || payload.Counts["todo"] != 2 || payload.Counts["done"] != 0 {
		t.Fatalf("unexpected readiness payload %+v", payload)
	}
}
