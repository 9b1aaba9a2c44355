package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-library/internal/memory"
	"media-library/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Ready       bool   `json:"ready"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Database    string `json:"database"`
	Transcoding bool   `json:"transcoding"`

	QueueLimit  int `json:"queueLimit"`
	QueueActive int `json:"queueActive"`
	Processes   int `json:"processes"`

	// System info
	GoVersion    string          `json:"goVersion"`
	NumCPU       int             `json:"numCpu"`
	NumGoroutine int             `json:"numGoroutine"`
	Memory       memory.Snapshot `json:"memory"`
}

// HealthCheck returns the health status of the service. A failing database
// makes the service unready; disabled transcoding only degrades it.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbErr := h.store.Ping(r.Context())

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        dbErr == nil,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Database:     "ok",
		Transcoding:  h.pipeline.IsEnabled(),
		QueueLimit:   h.queue.Limit(),
		QueueActive:  h.queue.Active(),
		Processes:    len(h.pipeline.Active()),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
		Memory:       memory.Sample(),
	}

	if dbErr != nil {
		response.Database = dbErr.Error()
		response.Status = statusDegraded
	} else if !response.Transcoding {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	if !response.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
