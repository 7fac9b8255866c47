package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksql-labs/asksql-engine/pkg/pipeline"
)

// fakeRunner scripts pipeline outcomes.
type fakeRunner struct {
	result *pipeline.ExecutionResult
	err    error

	questions []string
	opts      []pipeline.Options
}

func (f *fakeRunner) Run(ctx context.Context, question string, opts pipeline.Options) (*pipeline.ExecutionResult, error) {
	f.questions = append(f.questions, question)
	f.opts = append(f.opts, opts)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func postQuery(t *testing.T, h *QueryHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(body))
	mux.ServeHTTP(rec, req)
	return rec
}

func TestQuerySuccess(t *testing.T) {
	runner := &fakeRunner{
		result: &pipeline.ExecutionResult{
			Columns:  []string{"store_name", "total"},
			Rows:     [][]any{{"Downtown", 126.59}, {"Riverside", 137.25}},
			RowCount: 2,
			SQL:      "SELECT store_name, SUM(sold_price) AS total FROM sales GROUP BY store_name LIMIT 1000",
			Attempts: 1,
		},
	}
	h := NewQueryHandler(runner, pipeline.DefaultOptions(), nil)

	rec := postQuery(t, h, `{"question": "total sales per store"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"store_name", "total"}, resp.Columns)
	assert.Equal(t, 2, resp.RowCount)
	assert.False(t, resp.Truncated)
	assert.Equal(t, 1, resp.Attempts)
	assert.Contains(t, resp.SQL, "GROUP BY store_name")

	require.Len(t, runner.questions, 1)
	assert.Equal(t, "total sales per store", runner.questions[0])
}

func TestQueryValidation(t *testing.T) {
	h := NewQueryHandler(&fakeRunner{}, pipeline.DefaultOptions(), nil)

	t.Run("malformed body", func(t *testing.T) {
		rec := postQuery(t, h, `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing question", func(t *testing.T) {
		rec := postQuery(t, h, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := postQuery(t, h, `{"question": "q", "questoin": "typo"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestQueryMaxRowsOnlyLowers(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.ExecutionResult{}}
	h := NewQueryHandler(runner, pipeline.DefaultOptions(), nil)

	rec := postQuery(t, h, `{"question": "q", "max_rows": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = postQuery(t, h, `{"question": "q", "max_rows": 99999}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, runner.opts, 2)
	assert.Equal(t, 10, runner.opts[0].MaxRows)
	assert.Equal(t, pipeline.DefaultOptions().MaxRows, runner.opts[1].MaxRows, "cannot raise the cap")
}

func TestQueryPipelineFailureStatus(t *testing.T) {
	tests := []struct {
		kind   pipeline.ErrorKind
		status int
	}{
		{pipeline.KindQuestionRejected, http.StatusBadRequest},
		{pipeline.KindSchemaUnavailable, http.StatusServiceUnavailable},
		{pipeline.KindConnectionLost, http.StatusServiceUnavailable},
		{pipeline.KindServiceRejected, http.StatusBadGateway},
		{pipeline.KindExtractionFailed, http.StatusUnprocessableEntity},
		{pipeline.KindUnknownIdentifier, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			runner := &fakeRunner{err: &pipeline.PipelineFailure{
				Kind:    tt.kind,
				Message: "boom",
				Attempts: []pipeline.AttemptRecord{
					{ExtractedSQL: "SELECT x FROM y", FailureKind: tt.kind, ErrorDetail: "boom"},
				},
			}}
			h := NewQueryHandler(runner, pipeline.DefaultOptions(), nil)

			rec := postQuery(t, h, `{"question": "q"}`)
			assert.Equal(t, tt.status, rec.Code)

			var resp QueryFailureResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.kind), resp.Error)
			require.Len(t, resp.Attempts, 1)
			assert.Equal(t, "SELECT x FROM y", resp.Attempts[0].SQL)
		})
	}
}

func TestQueryUnexpectedError(t *testing.T) {
	runner := &fakeRunner{err: context.DeadlineExceeded}
	h := NewQueryHandler(runner, pipeline.DefaultOptions(), nil)

	rec := postQuery(t, h, `{"question": "q"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
