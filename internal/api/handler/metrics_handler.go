package handler

import (
	"net/http"

	"github.com/taskgrid/notification-service/internal/delayqueue"
	"github.com/taskgrid/notification-service/internal/registry"
)

// MetricsHandler serves a human-readable JSON pipeline snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	queue    delayqueue.Queue
	registry *registry.Registry
}

func NewMetricsHandler(q delayqueue.Queue, reg *registry.Registry) *MetricsHandler {
	return &MetricsHandler{queue: q, registry: reg}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Real-time queue depth and connection snapshot
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	depths := make(map[string]int64, len(delayqueue.Names()))
	var total int64
	for _, name := range delayqueue.Names() {
		n, err := h.queue.Len(r.Context(), name)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "queue depth unavailable")
			return
		}
		depths[name] = n
		total += n
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth":      depths,
		"queue_total":      total,
		"live_connections": h.registry.Connections(),
	})
}
