package mcpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/hylla/todos/internal/adapters/server/common"
	"github.com/hylla/todos/internal/app"
	"github.com/hylla/todos/internal/machine"
	"github.com/mark3labs/mcp-go/mcp"
)

// jsonRPCResponse models minimal JSON-RPC response fields used in MCP adapter tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// newTestServer serves an MCP handler over an in-memory app service.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
	svc := app.NewService(nil, machine.Context{}, ids, nil, app.ServiceConfig{})
	handler, err := NewHandler(Config{}, common.NewAppServiceAdapter(svc))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
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

// toolResultStructured decodes structuredContent as one map for stable assertions.
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
				"name":    "todos-test",
				"version": "1.0.0",
			},
		},
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	server := newTestServer(t)
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

// TestHandlerRegistersTodoTools verifies MCP tool discovery.
func TestHandlerRegistersTodoTools(t *testing.T) {
	server := newTestServer(t)
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
	for _, required := range []string{
		"todos.snapshot",
		"todos.send_event",
		"todos.list_tasks",
		"todos.add_task",
		"todos.toggle_task",
		"todos.delete_task",
		"todos.mark_all",
		"todos.clear_completed",
		"todos.show_view",
	} {
		if !slices.Contains(toolNames, required) {
			t.Fatalf("tool list missing %s: %#v", required, toolNames)
		}
	}
}

// TestHandlerTodoToolFlow drives the tools through a full scenario.
func TestHandlerTodoToolFlow(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	_, resp := postJSONRPC(t, client, server.URL, callToolRequest(2, "todos.send_event", map[string]any{
		"type":  "PendingText.Commit",
		"value": "  A  ",
	}))
	state := toolResultStructured(t, resp.Result)
	if count, _ := state["active_count"].(float64); count != 1 {
		t.Fatalf("active_count = %v, want 1", state["active_count"])
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(3, "todos.add_task", map[string]any{"title": "B"}))
	task := toolResultStructured(t, resp.Result)
	if task["id"] != "t2" || task["title"] != "B" {
		t.Fatalf("unexpected task %#v", task)
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(4, "todos.toggle_task", map[string]any{"id": "t1"}))
	if toggled := toolResultStructured(t, resp.Result); toggled["completed"] != true {
		t.Fatalf("unexpected toggled task %#v", toggled)
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(5, "todos.show_view", map[string]any{"fragment": "#/active"}))
	state = toolResultStructured(t, resp.Result)
	visible, _ := state["visible_tasks"].([]any)
	if state["view"] != "active" || len(visible) != 1 {
		t.Fatalf("unexpected state after show_view %#v", state)
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(6, "todos.clear_completed", map[string]any{}))
	state = toolResultStructured(t, resp.Result)
	tasks, _ := state["tasks"].([]any)
	if len(tasks) != 1 {
		t.Fatalf("tasks after clear = %#v", state["tasks"])
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(7, "todos.mark_all", map[string]any{}))
	if state = toolResultStructured(t, resp.Result); state["all_completed"] != true {
		t.Fatalf("all_completed = %v, want true", state["all_completed"])
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(8, "todos.delete_task", map[string]any{"id": "t2"}))
	state = toolResultStructured(t, resp.Result)
	if tasks, _ := state["tasks"].([]any); len(tasks) != 0 {
		t.Fatalf("tasks after delete = %#v", state["tasks"])
	}

	_, resp = postJSONRPC(t, client, server.URL, callToolRequest(9, "todos.snapshot", map[string]any{}))
	state = toolResultStructured(t, resp.Result)
	if hash, _ := state["state_hash"].(string); hash == "" {
		t.Fatalf("state_hash missing from snapshot %#v", state)
	}
}

// TestHandlerToolErrors verifies tool-level error mapping.
func TestHandlerToolErrors(t *testing.T) {
	server := newTestServer(t)
	client := server.Client()

	cases := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"missing type", "todos.send_event", map[string]any{}, `required argument "type" not found`},
		{"unknown event", "todos.send_event", map[string]any{"type": "Nope"}, "invalid_request:"},
		{"missing id", "todos.toggle_task", map[string]any{}, `required argument "id" not found`},
		{"unknown id", "todos.toggle_task", map[string]any{"id": "ghost"}, "not_found:"},
		{"blank title", "todos.add_task", map[string]any{"title": "  "}, "invalid_request:"},
		{"bad view", "todos.show_view", map[string]any{"view": "later"}, "invalid_request:"},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, resp := postJSONRPC(t, client, server.URL, callToolRequest(10+i, tc.tool, tc.args))
			if isError, _ := resp.Result["isError"].(bool); !isError {
				t.Fatalf("isError = %v, want true", resp.Result["isError"])
			}
			if got := toolResultText(t, resp.Result); !strings.Contains(got, tc.want) {
				t.Fatalf("error text = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestToolResultFromError verifies error-code prefixes.
func TestToolResultFromError(t *testing.T) {
	cases := map[string]error{
		"invalid_request: ": errors.Join(common.ErrInvalidRequest, errors.New("x")),
		"not_found: ":       errors.Join(common.ErrNotFound, errors.New("x")),
		"internal_error: ":  errors.New("x"),
	}
	for prefix, err := range cases {
		result := toolResultFromError(err)
		text, ok := result.Content[0].(mcp.TextContent)
		if !ok || !strings.HasPrefix(text.Text, prefix) {
			t.Fatalf("toolResultFromError(%v) = %#v, want prefix %q", err, result.Content, prefix)
		}
	}
	if _, err := NewHandler(Config{}, nil); err == nil {
		t.Fatal("expected error for missing service")
	}
}
