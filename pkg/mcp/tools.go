package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
)

// errorPayload is a structured error returned as a successful tool
// result so the client sees actionable detail instead of a swallowed
// protocol error.
type errorPayload struct {
	Error    bool             `json:"error"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Attempts []attemptPayload `json:"attempts,omitempty"`
}

type attemptPayload struct {
	SQL    string `json:"sql,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

type resultPayload struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
	SQL       string   `json:"sql"`
	Attempts  int      `json:"attempts"`
}

func newErrorResult(code, message string, attempts []attemptPayload) *mcp.CallToolResult {
	payload := errorPayload{
		Error:    true,
		Code:     code,
		Message:  message,
		Attempts: attempts,
	}
	jsonBytes, _ := json.Marshal(payload)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// registerAskDatabaseTool adds the ask_database tool: natural-language
// question in, tabular result out.
func registerAskDatabaseTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"ask_database",
		mcp.WithDescription(
			"Answer a natural-language question by generating and running a SQL query "+
				"against the connected database. Returns columns, rows, and the true row "+
				"count (rows may be truncated by the row cap). "+
				"Example: ask_database(question='total sales per store last month')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer, in plain language. Required."),
		),
		mcp.WithNumber(
			"max_rows",
			mcp.Description("Optional - lower the row cap for this call. Cannot raise the configured cap."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return newErrorResult("invalid_parameters", "parameter 'question' cannot be empty", nil), nil
		}

		opts := deps.Opts
		if maxRows := getOptionalInt(req, "max_rows"); maxRows > 0 && maxRows < opts.MaxRows {
			opts.MaxRows = maxRows
		}

		result, runErr := deps.Runner.Run(ctx, question, opts)
		if runErr != nil {
			var failure *pipeline.PipelineFailure
			if errors.As(runErr, &failure) {
				attempts := make([]attemptPayload, 0, len(failure.Attempts))
				for _, a := range failure.Attempts {
					attempts = append(attempts, attemptPayload{
						SQL:    a.ExtractedSQL,
						Reason: string(a.FailureKind),
						Detail: a.ErrorDetail,
					})
				}
				return newErrorResult(string(failure.Kind), failure.Message, attempts), nil
			}
			return nil, runErr
		}

		payload := resultPayload{
			Columns:   result.Columns,
			Rows:      result.Rows,
			RowCount:  result.RowCount,
			Truncated: result.Truncated(),
			SQL:       result.SQL,
			Attempts:  result.Attempts,
		}
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// registerGetSchemaTool adds the get_schema tool so clients can see
// what questions the datasource can answer.
func registerGetSchemaTool(s *server.MCPServer, deps *ToolDeps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription(
			"Describe the tables and columns of the connected database, one line per table.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Cache != nil {
			if desc := deps.Cache.Get(); desc != nil {
				return mcp.NewToolResultText(desc.Format()), nil
			}
		}

		desc, err := deps.Conn.Introspect(ctx)
		if err != nil {
			deps.Logger.Warn("schema introspection failed", zap.Error(err))
			return newErrorResult("schema_unavailable", err.Error(), nil), nil
		}
		if desc.Empty() {
			return newErrorResult("schema_unavailable", "introspection returned zero tables", nil), nil
		}

		if deps.Cache != nil {
			deps.Cache.Set(desc)
		}
		return mcp.NewToolResultText(desc.Format()), nil
	})
}

func getOptionalInt(req mcp.CallToolRequest, key string) int {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0
	}
	val, ok := args[key].(float64)
	if !ok {
		return 0
	}
	return int(val)
}
