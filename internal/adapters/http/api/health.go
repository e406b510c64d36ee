package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/topicsink/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and metrics requests.
type HealthHandler struct {
	metrics http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz and /metrics with the Prometheus exposition.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	h.metrics.ServeHTTP(w, r)
}

// ReadinessChecker reports whether the service can accept traffic.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// ReadyHandler handles readiness requests.
type ReadyHandler struct {
	checker ReadinessChecker
}

// NewReadyHandler creates a new readiness handler.
func NewReadyHandler(checker ReadinessChecker) *ReadyHandler {
	return &ReadyHandler{checker: checker}
}

type readyResponse struct {
	Status string `json:"status"`
}

// HandleReady handles GET /readyz: 200 when ready, 503 otherwise.
func (h *ReadyHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.checker.Ready(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ok"})
}
