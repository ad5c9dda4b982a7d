package handler

import (
	"encoding/json"
	"net/http"

	"valet/internal/software/notifier/service"
)

// StatsSource reports delivery counters.
type StatsSource interface {
	Stats() service.Stats
}

// HealthHandler exposes liveness and delivery counters of the notification service.
type HealthHandler struct {
	stats StatsSource
	ready func() bool
}

// NewHealthHandler builds the handler. ready reports broker connectivity; nil means always ready.
func NewHealthHandler(stats StatsSource, ready func() bool) *HealthHandler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &HealthHandler{stats: stats, ready: ready}
}

func (handler *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", handler.handleHealth)
}

// ----- Handler: GET /health -----

func (handler *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	type resp struct {
		Status string        `json:"status"`
		Stats  service.Stats `json:"stats"`
	}

	body := resp{Status: "ok", Stats: handler.stats.Stats()}
	status := http.StatusOK
	if !handler.ready() {
		body.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
