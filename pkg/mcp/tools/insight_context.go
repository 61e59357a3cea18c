package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	insightmcp "github.com/ekaya-inc/ekaya-insight/pkg/mcp"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// InsightContextToolDeps contains dependencies for the insight context tool.
type InsightContextToolDeps struct {
	InsightService services.InsightContextService
	Logger         *zap.Logger
}

// RegisterInsightContextTools registers the insight context tools.
func RegisterInsightContextTools(s *server.MCPServer, deps *InsightContextToolDeps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	registerGetInsightContextTool(s, deps)
}

func registerGetInsightContextTool(s *server.MCPServer, deps *InsightContextToolDeps) {
	tool := mcp.NewTool(
		"get_insight_context",
		mcp.WithDescription(
			"Sample and profile one or more data sources of the current project and return a markdown summary "+
				"with per-column statistics (row and null counts, cardinality, ranges, top values) and sample rows. "+
				"Sources that cannot be reached or time out are listed with their error instead of failing the call.",
		),
		mcp.WithArray(
			"datasource_ids",
			mcp.Required(),
			mcp.Description("IDs of the data sources to profile, in the order they should appear"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber(
			"max_rows_per_table",
			mcp.Description("Optional: sample rows per table (default and maximum set by the server)"),
		),
		mcp.WithObject(
			"table_name_mapping",
			mcp.Description("Optional: physical table name to display name"),
		),
		mcp.WithString(
			"format",
			mcp.Description("Response format: 'markdown' (default) or 'json' ({context, markdown})"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, ok := insightmcp.ProjectIDFromContext(ctx)
		if !ok {
			return nil, fmt.Errorf("get_insight_context: no project in request context")
		}

		rawIDs, err := getStringSlice(req, "datasource_ids")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if len(rawIDs) == 0 {
			return NewErrorResult("invalid_parameters", "datasource_ids must contain at least one ID"), nil
		}
		ids := make([]uuid.UUID, 0, len(rawIDs))
		for _, raw := range rawIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				return NewErrorResultWithDetails("invalid_parameters", "invalid datasource ID", map[string]any{"datasource_id": raw}), nil
			}
			ids = append(ids, id)
		}

		mapping, err := getStringMap(req, "table_name_mapping")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		format := getOptionalString(req, "format")
		if format != "" && format != "markdown" && format != "json" {
			return NewErrorResult("invalid_parameters", "invalid format: must be one of 'markdown', 'json'"), nil
		}

		maxRows, _ := getOptionalInt(req, "max_rows_per_table")

		result := deps.InsightService.BuildInsightContext(ctx, projectID, ids, maxRows, mapping)

		deps.Logger.Debug("Served insight context over MCP",
			zap.String("project_id", projectID.String()),
			zap.Int("sources", len(ids)),
			zap.Int("context_size_bytes", len(result.Markdown)))

		if format != "json" {
			return mcp.NewToolResultText(result.Markdown), nil
		}
		body, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal insight context: %w", err)
		}
		return mcp.NewToolResultText(string(body)), nil
	})
}
