package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/webherbas/taskflow/internal/adapters/server/common"
	"github.com/webherbas/taskflow/internal/adapters/storage/sqlite"
	"github.com/webherbas/taskflow/internal/app"
)

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// newTestBoardService builds a board service backed by in-memory sqlite.
func newTestBoardService(t *testing.T) common.BoardService {
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
	}, func() time.Time {
		return time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)
	}, app.BoardConfig{PageSize: 2})
	board.Reload(context.Background())
	return common.NewBoardAdapter(board)
}

// newTestServer starts one MCP server over the provided board service.
func newTestServer(t *testing.T, board common.BoardService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, board)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// toolResultStructured decodes structuredContent as one map.
func toolResultStructured(t *testing.T, result map[string]any) map[string]any {
	t.Helper()
	structured, ok := result["structuredContent"].(map[string]any)
	if !ok {
		t.Fatalf("structuredContent missing in tool result: %#v", result)
	}
	return structured
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "taskflow-test",
				"version": "1.0.0",
			},
		},
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	server := newTestServer(t, newTestBoardService(t))

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersBoardTools verifies tool discovery lists every board tool.
func TestHandlerRegistersBoardTools(t *testing.T) {
	server := newTestServer(t, newTestBoardService(t))
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})

	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	toolNames := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		toolNames = append(toolNames, name)
	}
	for _, want := range []string{
		"taskflow.board_state",
		"taskflow.list_tasks",
		"taskflow.get_task",
		"taskflow.add_task",
		"taskflow.set_status",
		"taskflow.advance_status",
		"taskflow.delete_task",
		"taskflow.change_page",
	} {
		if !slices.Contains(toolNames, want) {
			t.Fatalf("tool list missing %s: %#v", want, toolNames)
		}
	}
}

// TestHandlerTaskLifecycleToolCalls verifies add, advance, move, page and delete through MCP.
func TestHandlerTaskLifecycleToolCalls(t *testing.T) {
	server := newTestServer(t, newTestBoardService(t))
	client := server.Client()
	_, _ = postJSONRPC(t, client, server.URL, initializeRequest())

	_, added := postJSONRPC(t, client, server.URL, callToolRequest(2, "taskflow.add_task", map[string]any{
		"titulo":           "Buy milk",
		"descripcion":      "2 liters",
		"fechaVencimiento": "2024-05-10",
	}))
	if isErr, _ := added.Result["isError"].(bool); isErr {
		t.Fatalf("add_task returned error: %s", toolResultText(t, added.Result))
	}
	task := toolResultStructured(t, added.Result)
	if task["id"] != "task-1" || task["status"] != "todo" || task["titulo"] != "Buy milk" {
		t.Fatalf("unexpected task %#v", task)
	}

	_, advanced := postJSONRPC(t, client, server.URL, callToolRequest(3, "taskflow.advance_status", map[string]any{
		"id": "task-1",
	}))
	if got := toolResultStructured(t, advanced.Result)["status"]; got != "progress" {
		t.Fatalf("advanced status = %v, want progress", got)
	}

	_, moved := postJSONRPC(t, client, server.URL, callToolRequest(4, "taskflow.set_status", map[string]any{
		"id":     "task-1",
		"status": "done",
	}))
	change := toolResultStructured(t, moved.Result)
	if change["changed"] != true {
		t.Fatalf("set_status changed = %v, want true", change["changed"])
	}

	_, listed := postJSONRPC(t, client, server.URL, callToolRequest(5, "taskflow.list_tasks", map[string]any{
		"status": "done",
	}))
	items, _ := toolResultStructured(t, listed.Result)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("done items = %#v, want one", items)
	}

	_, paged := postJSONRPC(t, client, server.URL, callToolRequest(6, "taskflow.change_page", map[string]any{
		"status": "done",
		"page":   4,
	}))
	if got := toolResultStructured(t, paged.Result)["changed"]; got != false {
		t.Fatalf("change_page(4) changed = %v, want false", got)
	}

	_, deleted := postJSONRPC(t, client, server.URL, callToolRequest(7, "taskflow.delete_task", map[string]any{
		"id": "task-1",
	}))
	if got := toolResultStructured(t, deleted.Result)["deleted"]; got != "task-1" {
		t.Fatalf("deleted = %v, want task-1", got)
	}

	_, missing := postJSONRPC(t, client, server.URL, callToolRequest(8, "taskflow.get_task", map[string]any{
		"id": "task-1",
	}))
	if isErr, _ := missing.Result["isError"].(bool); !isErr {
		t.Fatalf("expected get_task error after delete, got %#v", missing.Result)
	}
	if text := toolResultText(t, missing.Result); !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("get_task error text = %q, want not_found prefix", text)
	}
}

// TestHandlerBoardStateToolCall verifies board_state returns all columns.
func TestHandlerBoardStateToolCall(t *testing.T) {
	server := newTestServer(t, newTestBoardService(t))
	client := server.Client()
	_, _ = postJSONRPC(t, client, server.URL, initializeRequest())

	_, resp := postJSONRPC(t, client, server.URL, callToolRequest(2, "taskflow.board_state", map[string]any{}))
	state := toolResultStructured(t, resp.Result)
	columns, _ := state["columns"].([]any)
	if len(columns) != 3 {
		t.Fatalf("columns = %#v, want three", columns)
	}
	if hash, _ := state["state_hash"].(string); hash == "" {
		t.Fatalf("state_hash missing: %#v", state)
	}
}

// TestHandlerValidationErrors verifies invalid arguments surface as tool errors.
func TestHandlerValidationErrors(t *testing.T) {
	server := newTestServer(t, newTestBoardService(t))
	client := server.Client()
	_, _ = postJSONRPC(t, client, server.URL, initializeRequest())

	cases := []struct {
		name   string
		tool   string
		args   map[string]any
		prefix string
	}{
		{name: "blank title", tool: "taskflow.add_task", args: map[string]any{"titulo": "   "}, prefix: "invalid_request:"},
		{name: "bad due date", tool: "taskflow.add_task", args: map[string]any{"titulo": "x", "fechaVencimiento": "tomorrow"}, prefix: "invalid_request:"},
		{name: "unknown id", tool: "taskflow.advance_status", args: map[string]any{"id": "nope"}, prefix: "not_found:"},
		{name: "bad status", tool: "taskflow.list_tasks", args: map[string]any{"status": "later"}, prefix: "invalid_request:"},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp := postJSONRPC(t, client, server.URL, callToolRequest(10+i, tc.tool, tc.args))
			if isErr, _ := resp.Result["isError"].(bool); !isErr {
				t.Fatalf("expected tool error, got %#v", resp.Result)
			}
			if text := toolResultText(t, resp.Result); !strings.HasPrefix(text, tc.prefix) {
				t.Fatalf("error text = %q, want prefix %q", text, tc.prefix)
			}
		})
	}
}

// TestNewHandlerRequiresBoard verifies constructor validation.
func TestNewHandlerRequiresBoard(t *testing.T) {
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error for missing board service")
	}
}

// TestNormalizeConfig verifies deterministic defaults and endpoint cleanup.
func TestNormalizeConfig(t *testing.T) {
	cases := []struct {
		in   Config
		want Config
	}{
		{in: Config{}, want: Config{ServerName: "taskflow", ServerVersion: "dev", EndpointPath: "/mcp"}},
		{in: Config{ServerName: " tf ", ServerVersion: " 1.2 ", EndpointPath: "tools/"}, want: Config{ServerName: "tf", ServerVersion: "1.2", EndpointPath: "/tools"}},
		{in: Config{EndpointPath: "//mcp//"}, want: Config{ServerName: "taskflow", ServerVersion: "dev", EndpointPath: "/mcp"}},
	}
	for _, tc := range cases {
		if got := normalizeConfig(tc.in); got != tc.want {
			t.Fatalf("normalizeConfig(%#v) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}

// TestHandlerServeHTTPUnavailable verifies nil handlers fail closed.
func TestHandlerServeHTTPUnavailable(t *testing.T) {
	var handler *Handler
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// TestToolResultFromErrorMapping verifies sentinel-to-prefix mapping.
func TestToolResultFromErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		prefix string
	}{
		{err: nil, prefix: "unknown error"},
		{err: fmt.Errorf("x: %w", common.ErrInvalidRequest), prefix: "invalid_request:"},
		{err: fmt.Errorf("x: %w", common.ErrNotFound), prefix: "not_found:"},
		{err: fmt.Errorf("x: %w", common.ErrConfirmationRequired), prefix: "confirmation_required:"},
		{err: errors.New("boom"), prefix: "internal_error:"},
	}
	for _, tc := range cases {
		result := toolResultFromError(tc.err)
		if !result.IsError {
			t.Fatalf("toolResultFromError(%v) IsError = false", tc.err)
		}
		text, ok := result.Content[0].(mcp.TextContent)
		if !ok {
			t.Fatalf("content[0] has unexpected type %T", result.Content[0])
		}
		if !strings.HasPrefix(text.Text, tc.prefix) {
			t.Fatalf("toolResultFromError(%v) = %q, want prefix %q", tc.err, text.Text, tc.prefix)
		}
	}
}
