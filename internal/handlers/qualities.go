package handlers

import (
	"net/http"

	"media-library/internal/decision"
)

// QualitiesResponse describes how a media file can be played.
type QualitiesResponse struct {
	MediaID        int64              `json:"mediaId"`
	Action         decision.Action    `json:"action"`
	Reason         string             `json:"reason"`
	Container      string             `json:"container,omitempty"`
	Qualities      []decision.Quality `json:"qualities"`
	DefaultQuality decision.Quality   `json:"defaultQuality"`
	Cached         map[string]bool    `json:"cached"`
	HLS            bool               `json:"hls"`
	Transcoding    bool               `json:"transcoding"`
}

// GetQualities reports the decision and the qualities a client may request.
// GET /media/{id}/qualities
func (h *Handlers) GetQualities(w http.ResponseWriter, r *http.Request) {
	t, ok := h.resolve(w, r)
	if !ok {
		return
	}

	qualities := decision.ExposedQualities(t.desc, t.dec)
	resp := QualitiesResponse{
		MediaID:        t.desc.ID,
		Action:         t.dec.Action,
		Reason:         t.dec.Reason,
		Container:      t.dec.Container,
		Qualities:      qualities,
		DefaultQuality: decision.DefaultQuality(t.desc, t.dec),
		Cached:         make(map[string]bool, len(qualities)),
		Transcoding:    h.pipeline.IsEnabled(),
	}

	if h.cache != nil {
		for _, q := range qualities {
			variant := string(q)
			if q == decision.QualityOriginal {
				if t.dec.Action != decision.ActionRemux {
					continue
				}
				variant = t.dec.RemuxVariant()
			}
			resp.Cached[string(q)] = h.cache.Has(t.desc.ID, variant)
		}
	}

	// HLS needs at least two renditions and a known duration.
	resp.HLS = resp.Transcoding && t.desc.IsVideo() && t.desc.Duration > 0 &&
		len(decision.AvailableQualities(t.desc.Width, t.desc.Height)) >= 2

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

