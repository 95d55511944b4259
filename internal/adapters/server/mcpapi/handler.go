// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hylla/timebox/internal/adapters/export"
	"github.com/hylla/timebox/internal/adapters/server/common"
	"github.com/hylla/timebox/internal/domain"
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

// NewHandler builds one stateless MCP adapter exposing the tracker as tools.
func NewHandler(cfg Config, tracker common.Tracker) (*Handler, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, tracker, time.Now)
	registerMutationTools(mcpSrv, tracker)

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
		cfg.ServerName = "timebox"
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
	if cfg.EndpointPath == "/" {
		cfg.EndpointPath = "/mcp"
	}
	return cfg
}

// registerReadTools registers status, list and CSV export tools.
func registerReadTools(srv *mcpserver.MCPServer, tracker common.Tracker, now func() time.Time) {
	srv.AddTool(
		mcp.NewTool(
			"timebox.status",
			mcp.WithDescription("Return the running activity with its countdown plus estimate accuracy totals."),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return jsonResult("status", common.CaptureStatus(tracker, now()))
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timebox.list_activities",
			mcp.WithDescription("List recorded activities, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of records (0 for all)")),
		),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			activities := tracker.Snapshot()
			if limit := req.GetInt("limit", 0); limit > 0 && limit < len(activities) {
				activities = activities[:limit]
			}
			return jsonResult("list_activities", map[string]any{
				"activities": common.NewActivityViews(activities),
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timebox.export_csv",
			mcp.WithDescription("Return all activities as CSV text."),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			data, err := export.Bytes(tracker.Snapshot(), time.Local)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return mcp.NewToolResultText(string(data)), nil
		},
	)
}

// registerMutationTools registers start, complete, edit and delete tools.
func registerMutationTools(srv *mcpserver.MCPServer, tracker common.Tracker) {
	srv.AddTool(
		mcp.NewTool(
			"timebox.start_activity",
			mcp.WithDescription("Start a new activity with an estimate. Fails while another activity is in progress."),
			mcp.WithString("name", mcp.Required(), mcp.Description("What you are working on")),
			mcp.WithNumber("estimated_minutes", mcp.Required(), mcp.Description("Positive whole number of minutes")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			minutes, err := req.RequireInt("estimated_minutes")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			view, err := common.Start(ctx, tracker, common.StartRequest{
				Name:             name,
				EstimatedMinutes: json.Number(strconv.Itoa(minutes)),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("start_activity", view)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timebox.complete_activity",
			mcp.WithDescription("Complete the activity in progress and record its actual time."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			view, err := common.Complete(ctx, tracker)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("complete_activity", view)
		},
	)

	fields := make([]string, 0, len(domain.EditableFields))
	for _, f := range domain.EditableFields {
		fields = append(fields, string(f))
	}
	srv.AddTool(
		mcp.NewTool(
			"timebox.edit_activity",
			mcp.WithDescription("Edit one field of an activity. Derived values are recomputed."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity identifier")),
			mcp.WithString("field", mcp.Required(), mcp.Description("Field to edit"), mcp.Enum(fields...)),
			mcp.WithString("value", mcp.Required(), mcp.Description("New value as text")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			field, err := req.RequireString("field")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			value, err := req.RequireString("value")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			view, err := common.Edit(ctx, tracker, id, common.EditRequest{Field: field, Value: value})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("edit_activity", view)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"timebox.delete_activity",
			mcp.WithDescription("Delete a finished activity. The activity in progress cannot be deleted."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Activity identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := common.Delete(ctx, tracker, id); err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("delete_activity", map[string]any{"deleted": id})
		},
	)
}

func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps tracker errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("unknown error")
	}
	return mcp.NewToolResultError(common.ErrorCode(err) + ": " + err.Error())
}
