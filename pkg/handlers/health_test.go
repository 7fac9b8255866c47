package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asksql-labs/asksql-engine/pkg/config"
)

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	h := NewHealthHandler(&config.Config{}, nil, nil)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPing(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "test"}

	tests := []struct {
		name   string
		pinger Pinger
		want   string
	}{
		{"no datasource", nil, "not configured"},
		{"reachable", &fakePinger{}, "ok"},
		{"unreachable", &fakePinger{err: errors.New("connection refused")}, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(cfg, tt.pinger, nil)
			mux := http.NewServeMux()
			h.RegisterRoutes(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp PingResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "1.2.3", resp.Version)
			assert.Equal(t, "asksql-engine", resp.Service)
			assert.Equal(t, tt.want, resp.Datasource)
		})
	}
}
