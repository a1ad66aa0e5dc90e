// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/webherbas/taskflow/internal/adapters/server/common"
	"github.com/webherbas/taskflow/internal/domain"
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

// NewHandler builds one stateless MCP adapter exposing the board tools.
func NewHandler(cfg Config, board common.BoardService) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, board)
	registerMutationTools(mcpSrv, board)

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
		cfg.ServerName = "taskflow"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// statusEnum lists the accepted status argument values.
func statusEnum() []string {
	out := make([]string, 0, 3)
	for _, status := range domain.Statuses() {
		out = append(out, string(status))
	}
	return out
}

// registerReadTools registers the read-only board tools.
func registerReadTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"taskflow.board_state",
			mcp.WithDescription("Return the current page of every column with a state hash."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := board.BoardState(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("board_state", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.list_tasks",
			mcp.WithDescription("List tasks, optionally filtered by status."),
			mcp.WithString("status", mcp.Description("Status filter"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			items, err := board.ListTasks(ctx, req.GetString("status", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_tasks", map[string]any{
				"items": items,
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.get_task",
			mcp.WithDescription("Return one task by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := board.GetTask(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_task", item)
		},
	)
}

// registerMutationTools registers the tools that change the board.
func registerMutationTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"taskflow.add_task",
			mcp.WithDescription("Create one task in the todo column."),
			mcp.WithString("titulo", mcp.Required(), mcp.Description("Task title, at most 100 characters")),
			mcp.WithString("descripcion", mcp.Description("Optional description, at most 500 characters")),
			mcp.WithString("fechaVencimiento", mcp.Description("Optional due date, YYYY-MM-DD")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("titulo")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := board.AddTask(ctx, common.AddTaskRequest{
				Title:       title,
				Description: req.GetString("descripcion", ""),
				DueDate:     req.GetString("fechaVencimiento", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("add_task", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.set_status",
			mcp.WithDescription("Move one task to a column."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Destination column"), mcp.Enum(statusEnum()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			change, err := board.SetStatus(ctx, id, common.SetStatusRequest{Status: status})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("set_status", change)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.advance_status",
			mcp.WithDescription("Cycle one task to the next column: todo, progress, done, todo."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			item, err := board.AdvanceStatus(ctx, id)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("advance_status", item)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.delete_task",
			mcp.WithDescription("Delete one task by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.DeleteTask(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_task", map[string]any{
				"deleted": id,
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"taskflow.change_page",
			mcp.WithDescription("Change the current page of one column. Out-of-range pages are ignored."),
			mcp.WithString("status", mcp.Required(), mcp.Description("Column"), mcp.Enum(statusEnum()...)),
			mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page number")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			page, err := req.RequireInt("page")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			column, changed, err := board.ChangePage(ctx, status, page)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("change_page", map[string]any{
				"changed": changed,
				"column":  column,
			})
		},
	)
}

// jsonResult encodes one structured tool result.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
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
	case errors.Is(err, common.ErrConfirmationRequired):
		return mcp.NewToolResultError("confirmation_required: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
