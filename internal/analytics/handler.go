package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	aggregator *Aggregator
	collector  *Collector
	logger     *slog.Logger
}

// NewHandler serves aggregator stats. collector may be nil.
func NewHandler(aggregator *Aggregator, collector *Collector) *Handler {
	return &Handler{
		aggregator: aggregator,
		collector:  collector,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

type statsResponse struct {
	AggregatedStats
	DroppedEvents int64 `json:"dropped_events"`
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{AggregatedStats: h.aggregator.Stats()}
	if h.collector != nil {
		resp.DroppedEvents = h.collector.Dropped()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
