package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/asksql-labs/asksql-engine/pkg/config"
)

// Pinger is the slice of the datasource connection the health endpoint
// needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Environment string `json:"environment"`
	Datasource  string `json:"datasource"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	conn   Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler. conn may be nil when no
// datasource is wired (the ping then reports "not configured").
func NewHealthHandler(cfg *config.Config, conn Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{cfg: cfg, conn: conn, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health. Returns a bare "ok" for load balancer
// probes; it never touches the datasource.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping. Reports service metadata and the datasource
// reachability.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	datasourceStatus := "not configured"
	if h.conn != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.conn.Ping(ctx); err != nil {
			h.logger.Warn("datasource ping failed", zap.Error(err))
			datasourceStatus = "unreachable"
		} else {
			datasourceStatus = "ok"
		}
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "asksql-engine",
		GoVersion:   runtime.Version(),
		Environment: h.cfg.Env,
		Datasource:  datasourceStatus,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write ping response", zap.Error(err))
	}
}
