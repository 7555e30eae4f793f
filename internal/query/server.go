package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/convolog/convolog/internal/logging"
)

// version is the protocol-facing version string for the query server.
const version = "0.1.0"

// Server exposes a Service over the MCP stdio tool-call protocol: tools/list
// advertises get_learning and search_learnings; tools/call dispatches to
// them, wrapping the JSON-serialized result in a single text content block
// per spec.md §6.
type Server struct {
	service *Service
	logger  logging.Logger
}

// NewServer builds a query Server over an existing Service.
func NewServer(service *Service, logger logging.Logger) *Server {
	return &Server{service: service, logger: logger}
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve() error {
	srv := mcpserver.NewMCPServer(
		"convolog-query",
		version,
		mcpserver.WithRecovery(),
		mcpserver.WithToolCapabilities(false),
	)

	srv.AddTool(
		mcp.NewTool("get_learning",
			mcp.WithDescription("Look up a single extracted learning by id"),
			mcp.WithString("id",
				mcp.Description("Learning id"),
				mcp.Required(),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleGetLearning,
	)

	srv.AddTool(
		mcp.NewTool("search_learnings",
			mcp.WithDescription("Case-sensitive substring search over learning titles and content"),
			mcp.WithString("query",
				mcp.Description("Substring to search for"),
				mcp.Required(),
			),
			mcp.WithNumber("limit",
				mcp.Description("Max results to return, clamped to [1, 50] (default 10)"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleSearchLearnings,
	)

	return mcpserver.ServeStdio(srv)
}

func (s *Server) handleGetLearning(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: id"), nil
	}
	s.logToolCall(ctx, "get_learning", id)

	learning, err := s.service.GetLearning(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get_learning failed: %v", err)), nil
	}

	return jsonToolResult(learning)
}

func (s *Server) handleSearchLearnings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required argument: query"), nil
	}

	limit := 0
	if l, ok := request.GetArguments()["limit"].(float64); ok {
		limit = int(l)
	}
	s.logToolCall(ctx, "search_learnings", query)

	results, err := s.service.SearchLearnings(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search_learnings failed: %v", err)), nil
	}

	return jsonToolResult(results)
}

// logToolCall records which tool was invoked and with what resource, for
// operational visibility into the query surface. Silently skipped when no
// logger was configured.
func (s *Server) logToolCall(ctx context.Context, tool, resource string) {
	if s.logger == nil {
		return
	}
	event := logging.NewEvent(logging.EventQueryToolCalled).
		WithResource(resource).
		WithMetadata("tool", tool)
	_ = s.logger.Log(ctx, event)
}

// jsonToolResult wraps v's JSON encoding in a single text content block, per
// the tool-call protocol's contract. nil values encode as the JSON literal
// null, matching "a Learning, null, or an array" in spec.md §6.
func jsonToolResult(v interface{}) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("serializing result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
