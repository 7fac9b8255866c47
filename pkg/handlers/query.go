package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
)

// QueryRunner is the pipeline surface the handler needs; satisfied by
// *pipeline.Pipeline.
type QueryRunner interface {
	Run(ctx context.Context, question string, opts pipeline.Options) (*pipeline.ExecutionResult, error)
}

// QueryRequest is the POST /api/query payload.
type QueryRequest struct {
	Question string `json:"question"`

	// MaxRows optionally lowers the configured row cap for this call.
	MaxRows int `json:"max_rows,omitempty"`
}

// QueryResponse is the success payload.
type QueryResponse struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
	SQL       string   `json:"sql"`
	Attempts  int      `json:"attempts"`
}

// QueryFailureResponse is the error payload for pipeline failures,
// including the attempt history for diagnostics.
type QueryFailureResponse struct {
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Attempts []AttemptSummary `json:"attempts,omitempty"`
}

// AttemptSummary is one failed attempt, trimmed for the wire.
type AttemptSummary struct {
	SQL    string `json:"sql,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// QueryHandler exposes the translation pipeline over HTTP.
type QueryHandler struct {
	runner QueryRunner
	opts   pipeline.Options
	logger *zap.Logger
}

// NewQueryHandler creates a QueryHandler with the configured default
// options.
func NewQueryHandler(runner QueryRunner, opts pipeline.Options, logger *zap.Logger) *QueryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryHandler{runner: runner, opts: opts, logger: logger}
}

// RegisterRoutes registers the query route on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.Query)
}

// Query handles POST /api/query: translate the question, execute the
// result, return rows or the failure with its attempt history.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		_ = writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.Question == "" {
		_ = writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	opts := h.opts
	if req.MaxRows > 0 && req.MaxRows < opts.MaxRows {
		opts.MaxRows = req.MaxRows
	}

	result, err := h.runner.Run(r.Context(), req.Question, opts)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	response := QueryResponse{
		Columns:   result.Columns,
		Rows:      result.Rows,
		RowCount:  result.RowCount,
		Truncated: result.Truncated(),
		SQL:       result.SQL,
		Attempts:  result.Attempts,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write query response", zap.Error(err))
	}
}

func (h *QueryHandler) writeFailure(w http.ResponseWriter, err error) {
	var failure *pipeline.PipelineFailure
	if !errors.As(err, &failure) {
		h.logger.Error("query failed", zap.Error(err))
		_ = writeError(w, http.StatusInternalServerError, "internal_error", "query failed")
		return
	}

	attempts := make([]AttemptSummary, 0, len(failure.Attempts))
	for _, a := range failure.Attempts {
		attempts = append(attempts, AttemptSummary{
			SQL:    a.ExtractedSQL,
			Reason: string(a.FailureKind),
			Detail: a.ErrorDetail,
		})
	}

	h.logger.Warn("query pipeline failed",
		zap.String("kind", string(failure.Kind)),
		zap.Int("attempts", len(failure.Attempts)))

	_ = writeJSON(w, statusForKind(failure.Kind), QueryFailureResponse{
		Error:    string(failure.Kind),
		Message:  failure.Message,
		Attempts: attempts,
	})
}

// statusForKind maps terminal failure kinds to HTTP status codes.
func statusForKind(kind pipeline.ErrorKind) int {
	switch kind {
	case pipeline.KindQuestionRejected:
		return http.StatusBadRequest
	case pipeline.KindSchemaUnavailable, pipeline.KindConnectionLost:
		return http.StatusServiceUnavailable
	case pipeline.KindServiceRejected, pipeline.KindServiceUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}
