// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hylla/todos/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the todo tools.
func NewHandler(cfg Config, todos common.TodoService) (*Handler, error) {
	if todos == nil {
		return nil, fmt.Errorf("todo service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerStateTools(mcpSrv, todos)
	registerTaskTools(mcpSrv, todos)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "todos"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerStateTools registers `todos.snapshot` and `todos.send_event`.
func registerStateTools(srv *mcpserver.MCPServer, todos common.TodoService) {
	srv.AddTool(
		mcp.NewTool(
			"todos.snapshot",
			mcp.WithDescription("Return the current todo state: active states, pending text, counts and tasks."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := todos.State(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("snapshot", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.send_event",
			mcp.WithDescription("Send one raw state machine event by name."),
			mcp.WithString("type", mcp.Required(), mcp.Description("Event name"), mcp.Enum(common.EventTypes()...)),
			mcp.WithString("value", mcp.Description("Pending text for PendingText.Change and PendingText.Commit")),
			mcp.WithString("id", mcp.Description("Task id for Task.Commit and Task.Delete")),
			mcp.WithString("title", mcp.Description("Task title for Task.Commit")),
			mcp.WithBoolean("completed", mcp.Description("Completed flag for Task.Commit")),
			mcp.WithString("view", mcp.Description("all|active|completed for ShowView"), mcp.Enum("all", "active", "completed")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.EventRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			if strings.TrimSpace(args.Type) == "" {
				return mcp.NewToolResultError(`invalid_request: required argument "type" not found`), nil
			}
			state, err := todos.SendEvent(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("send_event", state)
		},
	)
}

// stateResult encodes one state payload.
func stateResult(tool string, state common.TodoState) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(state)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}

// invalidRequestToolResult wraps argument-binding failures as deterministic tool errors.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("invalid_request: malformed arguments")
	}
	return mcp.NewToolResultError("invalid_request: " + err.Error())
}
