package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"media-library/internal/metrics"
	"media-library/internal/transcoder"
)

// TranscodeStatusResponse reports pipeline, queue and cache state.
type TranscodeStatusResponse struct {
	Enabled     bool                      `json:"enabled"`
	QueueLimit  int                       `json:"queueLimit"`
	QueueActive int                       `json:"queueActive"`
	Processes   []transcoder.ProcessStats `json:"processes"`
	CacheDir    string                    `json:"cacheDir,omitempty"`
	CacheFiles  int                       `json:"cacheFiles"`
	CacheBytes  int64                     `json:"cacheBytes"`
	CacheSize   string                    `json:"cacheSize"`
}

// TranscodeStatus returns the running transcode processes and cache size.
// GET /api/transcode/status
func (h *Handlers) TranscodeStatus(w http.ResponseWriter, _ *http.Request) {
	resp := TranscodeStatusResponse{
		Enabled:     h.pipeline.IsEnabled(),
		QueueLimit:  h.queue.Limit(),
		QueueActive: h.queue.Active(),
		Processes:   h.pipeline.Active(),
	}
	if resp.Processes == nil {
		resp.Processes = []transcoder.ProcessStats{}
	}

	if h.cache != nil {
		resp.CacheDir = h.cache.Root()
		files, size, err := h.cache.Stats()
		if err != nil {
			log.Warn("Cache stats failed: %v", err)
		}
		resp.CacheFiles = files
		resp.CacheBytes = size
		metrics.CacheFilesTotal.Set(float64(files))
		metrics.CacheSizeBytes.Set(float64(size))
	}
	resp.CacheSize = humanize.IBytes(uint64(resp.CacheBytes))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// ClearTranscodeCache removes every completed cache artifact. Admin only.
// POST /api/transcode/clear
func (h *Handlers) ClearTranscodeCache(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !user.IsAdmin {
		metrics.AccessDeniedTotal.Inc()
		writeJSONError(w, "admin access required", http.StatusForbidden)
		return
	}
	if h.cache == nil {
		writeJSONError(w, "transcode cache is unavailable", http.StatusServiceUnavailable)
		return
	}

	freed, err := h.cache.Clear()
	if err != nil {
		log.Error("Failed to clear transcode cache: %v", err)
		writeJSONError(w, "failed to clear cache", http.StatusInternalServerError)
		return
	}
	log.Info("User %s cleared the transcode cache, freed %s", user.Username, humanize.IBytes(uint64(freed)))

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"freedBytes": freed,
		"freed":      humanize.IBytes(uint64(freed)),
	})
}
