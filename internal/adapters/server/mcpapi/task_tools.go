package mcpapi

import (
	"context"
	"fmt"

	"github.com/hylla/todos/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerTaskTools registers the task-level convenience tools.
func registerTaskTools(srv *mcpserver.MCPServer, todos common.TodoService) {
	srv.AddTool(
		mcp.NewTool(
			"todos.list_tasks",
			mcp.WithDescription("List tasks through a view; defaults to the current view."),
			mcp.WithString("view", mcp.Description("all|active|completed"), mcp.Enum("all", "active", "completed")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := todos.ListTasks(ctx, req.GetString("view", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"tasks": rows})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.add_task",
			mcp.WithDescription("Add one active task. Clears any pending text."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := todos.AddTask(ctx, common.AddTaskRequest{Title: title})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode add_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.toggle_task",
			mcp.WithDescription("Flip the completed flag of one task."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			task, err := todos.ToggleTask(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode toggle_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.delete_task",
			mcp.WithDescription("Delete one task by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			state, err := todos.DeleteTask(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("delete_task", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.mark_all",
			mcp.WithDescription("Mark every task completed or active. Without `completed` it toggles."),
			mcp.WithBoolean("completed", mcp.Description("Target completed flag")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.MarkAllRequest
			if err := req.BindArguments(&args); err != nil {
				return invalidRequestToolResult(err), nil
			}
			state, err := todos.MarkAll(ctx, args)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("mark_all", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.clear_completed",
			mcp.WithDescription("Remove every completed task."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := todos.ClearCompleted(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("clear_completed", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"todos.show_view",
			mcp.WithDescription("Switch the visible filter by view name or location fragment such as #/active."),
			mcp.WithString("view", mcp.Description("all|active|completed"), mcp.Enum("all", "active", "completed")),
			mcp.WithString("fragment", mcp.Description("Location fragment; unknown fragments show all tasks")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := todos.ShowView(ctx, common.ShowViewRequest{
				View:     req.GetString("view", ""),
				Fragment: req.GetString("fragment", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return stateResult("show_view", state)
		},
	)
}
